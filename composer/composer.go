package composer

import (
	"fmt"
	"time"

	"github.com/keystat/keystat/pkg/errlvl"
)

// Mode selects the PostComposer used by the job.
type Mode string

const (
	ModeIndicators   Mode = "indicators"   // post the extracted indicators
	ModeAnnouncement Mode = "announcement" // post a timestamped notice, for checking the account wiring
)

// PostComposer turns the extracted indicator text into the post body.
type PostComposer interface {
	Compose(extracted string) string
}

// NewPostComposer returns the composer for the mode. The location is used for the announcement timestamp.
func NewPostComposer(mode Mode, loc *time.Location) (PostComposer, error) {
	switch mode {
	case ModeIndicators, "":
		return &IndicatorComposer{}, nil
	case ModeAnnouncement:
		return NewAnnouncementComposer(loc), nil
	default:
		return nil, newError(ErrUnknownMode, errlvl.FATAL, "NewPostComposer").WithValue(string(mode))
	}
}

// IndicatorComposer posts the indicator lines as they are.
type IndicatorComposer struct{}

func (*IndicatorComposer) Compose(extracted string) string {
	return extracted
}

// AnnouncementComposer ignores the indicators and posts a notice with the current time.
type AnnouncementComposer struct {
	Now      func() time.Time
	Location *time.Location
}

// NewAnnouncementComposer creates an AnnouncementComposer reading the wall clock in loc (UTC if nil).
func NewAnnouncementComposer(loc *time.Location) *AnnouncementComposer {
	if loc == nil {
		loc = time.UTC
	}
	return &AnnouncementComposer{
		Now:      time.Now,
		Location: loc,
	}
}

// IgnoresIndicators reports that the announcement is built from the clock only.
func (*AnnouncementComposer) IgnoresIndicators() bool {
	return true
}

func (a *AnnouncementComposer) Compose(string) string {
	return fmt.Sprintf("🤖 자동화 시스템이 작성한 게시물입니다.\n작성 시각: %s", FormatTimestamp(a.Now().In(a.Location)))
}

// FormatTimestamp renders t as "2006년 01월 02일 15시 04분".
func FormatTimestamp(t time.Time) string {
	return t.Format("2006년 01월 02일 15시 04분")
}
