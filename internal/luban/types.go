package luban

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UnknownSite is shown when a site has no usable name.
const UnknownSite = "未知地點"

// Site is a construction site a worker can check in to.
type Site struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name,omitempty"`
	Address   string      `json:"address"`
	Lat       float64     `json:"lat"`
	Lng       float64     `json:"lng"`
	ClientID  int64       `json:"_pb_client_id"`
	CreatedAt int64       `json:"created_at"`
	Client    *SiteClient `json:"_pb_client,omitempty"`
}

// SiteClient is the customer that owns a site.
type SiteClient struct {
	Name string `json:"name"`
}

// DisplayName falls back from the site name to the client name, the address,
// and finally a fixed placeholder.
func (s Site) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Client != nil && s.Client.Name != "":
		return s.Client.Name
	case s.Address != "":
		return s.Address
	default:
		return UnknownSite
	}
}

// WorkType is a category of labour.
type WorkType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// User is the worker profile returned at login.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Nickname  string `json:"nickname,omitempty"`
	Country   string `json:"country"`
	Number    string `json:"number"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Shift is one check-in submission as stored upstream.
type Shift struct {
	ID        int64       `json:"id"`
	Date      string      `json:"date"`
	Shift     string      `json:"shift"`
	UserID    int64       `json:"lb_user_id"`
	CreatedAt int64       `json:"created_at"`
	Sites     []ShiftSite `json:"_lb_shift_site_of_lb_shift,omitempty"`
}

// CreatedTime converts the millisecond timestamp.
func (s Shift) CreatedTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// ShiftSite links a shift to a site and the work performed there.
type ShiftSite struct {
	ID        int64         `json:"id"`
	ShiftID   int64         `json:"lb_shift_id"`
	SiteID    int64         `json:"lb_site_id"`
	WorkTypes WorkTypeIDs   `json:"lb_worktype_id"`
	Note      string        `json:"note"`
	CreatedAt int64         `json:"created_at"`
	Site      *ShiftSiteRef `json:"_lb_site,omitempty"`
}

// ShiftSiteRef is the site summary embedded in shift lookups.
type ShiftSiteRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Area string `json:"area"`
}

// SiteName returns the embedded site name or the placeholder.
func (s ShiftSite) SiteName() string {
	if s.Site != nil && s.Site.Name != "" {
		return s.Site.Name
	}
	return UnknownSite
}

// WorkTypeIDs decodes work types sent either as objects with an id or as bare ids.
type WorkTypeIDs []int64

// UnmarshalJSON implements json.Unmarshaler.
func (w *WorkTypeIDs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*w = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("work type ids: %w", err)
	}
	ids := make(WorkTypeIDs, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var obj struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return fmt.Errorf("work type object: %w", err)
			}
			ids = append(ids, obj.ID)
			continue
		}
		var id FlexID
		if err := json.Unmarshal(item, &id); err != nil {
			return fmt.Errorf("work type id: %w", err)
		}
		n, err := strconv.ParseInt(string(id), 10, 64)
		if err != nil {
			return fmt.Errorf("work type id %q: %w", string(id), err)
		}
		ids = append(ids, n)
	}
	*w = ids
	return nil
}

// Upload is a photo stored upstream.
type Upload struct {
	ID         FlexID       `json:"id"`
	Date       string       `json:"date"`
	Time       string       `json:"time"`
	Timestamp  int64        `json:"timestamp"`
	UserID     int64        `json:"lb_user_id"`
	OrigName   string       `json:"file_name_ori"`
	MIME       string       `json:"file_mime"`
	FileName   string       `json:"file_name"`
	Ext        string       `json:"file_ext"`
	FilePath   string       `json:"file_path"`
	Classified bool         `json:"classified"`
	FileClass  string       `json:"file_class"`
	CreatedAt  int64        `json:"created_at"`
	SortDate   string       `json:"sort_date,omitempty"`
	SortTime   string       `json:"sort_time,omitempty"`
	Image      *UploadImage `json:"_lb_upload_image_of_lb_upload,omitempty"`
}

// UploadImage carries EXIF data extracted upstream.
type UploadImage struct {
	ID       int64    `json:"id"`
	ExifDate string   `json:"exif_date"`
	ExifTime string   `json:"exif_time"`
	ExifLat  *float64 `json:"exif_lat,omitempty"`
	ExifLng  *float64 `json:"exif_lng,omitempty"`
}

// FlexID accepts a JSON string or number and keeps its text form.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}
