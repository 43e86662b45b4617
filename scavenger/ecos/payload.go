package ecos

import (
	"encoding/json"
	"fmt"
)

// Payload is the KeyStatisticList response.
//
// On success ECOS returns {"KeyStatisticList": {"list_total_count": 101, "row": [...]}}.
// On failure it still answers 200 with {"RESULT": {"CODE": "INFO-100", "MESSAGE": "..."}}.
type Payload struct {
	KeyStatisticList *StatisticList `json:"KeyStatisticList"`
	Result           *Result        `json:"RESULT"`
}

// StatisticList is the container of the key statistic rows.
type StatisticList struct {
	TotalCount int      `json:"list_total_count"`
	Rows       []Record `json:"row"` // nil when "row" is missing or null
}

// Record is a single key statistic row.
type Record struct {
	ClassName string `json:"CLASS_NAME"`   // group of the statistic, e.g. "시장금리"
	Name      string `json:"KEYSTAT_NAME"` // statistic name, e.g. "한국은행 기준금리"
	Value     Text   `json:"DATA_VALUE"`   // value as published, e.g. "3.5"
	Cycle     string `json:"CYCLE"`        // date token: YYYY, YYYYMM or YYYYMMDD
	Unit      Text   `json:"UNIT_NAME"`    // unit, may be null or padded with spaces
}

// Result is the status block ECOS sends instead of data when a request is rejected.
type Result struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

func (r *Result) String() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Text is a JSON scalar kept as text. ECOS sends values as strings, but numbers and null are accepted too.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ecos: unsupported value %s", data)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string {
	return string(t)
}
