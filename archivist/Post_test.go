package archivist

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/keystat/keystat/pkg/errlvl"
	"gorm.io/gorm"
)

func TestPost_BeforeCreate(t *testing.T) {
	tests := []struct {
		name    string
		post    Post
		wantErr bool
	}{
		{
			name: "valid post",
			post: Post{
				Platform:      "x",
				PublicationID: "1746913346873651200",
				Text:          "한국은행 기준금리: 3.50 % (2024년01월15일)",
			},
			wantErr: false,
		},
		{
			name: "post without text",
			post: Post{
				Platform: "x",
			},
			wantErr: true,
		},
		{
			name: "post without platform",
			post: Post{
				Text: "코스피지수: 2525.05  (2024년01월15일)",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.BeforeCreate(&gorm.DB{})
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeCreate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !errors.Is(err, errPostValidation) {
					t.Errorf("BeforeCreate() error = %v, want %v", err, errPostValidation)
				}
				if errlvl.Of(err) != errlvl.INFO {
					t.Errorf("BeforeCreate() error level = %v, want INFO", errlvl.Of(err))
				}
				return
			}
			if tt.post.ID == uuid.Nil {
				t.Error("BeforeCreate() did not set ID")
			}
			if tt.post.Hash != HashText(tt.post.Text) {
				t.Errorf("BeforeCreate() Hash = %v, want %v", tt.post.Hash, HashText(tt.post.Text))
			}
			if tt.post.PublishedAt.IsZero() {
				t.Error("BeforeCreate() did not set PublishedAt")
			}
		})
	}
}

func TestPost_BeforeCreate_keepsGivenValues(t *testing.T) {
	id := uuid.New()
	published := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	p := Post{ID: id, Hash: "abc", Platform: "telegram", Text: "text", PublishedAt: published}

	if err := p.BeforeCreate(&gorm.DB{}); err != nil {
		t.Fatalf("BeforeCreate() error = %v", err)
	}
	if p.ID != id || p.Hash != "abc" || !p.PublishedAt.Equal(published) {
		t.Errorf("BeforeCreate() overwrote given values: %+v", p)
	}
}

func TestPost_Validate(t *testing.T) {
	tests := []struct {
		name    string
		post    Post
		wantErr error
	}{
		{name: "ok", post: Post{Platform: "x", Text: "t"}},
		{name: "platform too long", post: Post{Platform: strings.Repeat("p", 17), Text: "t"}, wantErr: errPlatformTooLong},
		{name: "hash too long", post: Post{Platform: "x", Text: "t", Hash: strings.Repeat("h", 33)}, wantErr: errHashTooLong},
		{name: "publication id too long", post: Post{Platform: "x", Text: "t", PublicationID: strings.Repeat("1", 65)}, wantErr: errPubIDTooLong},
		{name: "text too long", post: Post{Platform: "x", Text: strings.Repeat("가", 4097)}, wantErr: errTextTooLong},
		{name: "4096 hangul runes fit", post: Post{Platform: "x", Text: strings.Repeat("가", 4096)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashText(t *testing.T) {
	text := "원/달러 환율(종가): 1,316.5 원 (2024년01월15일)"
	hash := md5.Sum([]byte(text))

	if got := HashText(text); got != hex.EncodeToString(hash[:]) {
		t.Errorf("HashText() = %v, want %v", got, hex.EncodeToString(hash[:]))
	}
	if HashText(text) == HashText(text+"\n") {
		t.Error("HashText() must differ for different texts")
	}
}
