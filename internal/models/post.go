package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringList is a list of strings persisted as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Contains reports whether v is in the list.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// ParseTags turns "a, b,c" into [a b c]. Spaces are removed entirely and empty entries dropped.
func ParseTags(raw string) StringList {
	cleaned := strings.ReplaceAll(raw, " ", "")
	if cleaned == "" {
		return StringList{}
	}
	tags := StringList{}
	for _, t := range strings.Split(cleaned, ",") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Post is a captioned image published by a User.
type Post struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatorID string     `gorm:"not null;index" json:"creator_id"`
	Creator   *User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Caption   string     `gorm:"type:text" json:"caption"`
	ImageURL  string     `gorm:"not null" json:"image_url"`
	ImageID   string     `gorm:"not null" json:"image_id"`
	Location  string     `json:"location"`
	Tags      StringList `gorm:"type:text" json:"tags"`
	Likes     StringList `gorm:"type:text" json:"likes"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a random ID when the caller did not supply one.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// DocumentID implements Document.
func (p Post) DocumentID() string { return p.ID }
