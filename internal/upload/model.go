package upload

import (
	"errors"
	"fmt"
	"time"
)

// FileStatus tracks one file inside a batch.
type FileStatus string

const (
	StatusPending   FileStatus = "pending"
	StatusUploading FileStatus = "uploading"
	StatusSuccess   FileStatus = "success"
	StatusError     FileStatus = "error"
)

// BatchState is the lifecycle of a whole batch.
type BatchState string

const (
	BatchRunning BatchState = "running"
	BatchDone    BatchState = "done"
)

// File is a photo waiting to be relayed.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileState is the client-visible progress of one file.
type FileState struct {
	Name     string     `json:"name"`
	Size     int        `json:"size"`
	Status   FileStatus `json:"status"`
	Progress int        `json:"progress"`
	Error    string     `json:"error,omitempty"`
}

// Batch is a snapshot of a multi-file upload.
type Batch struct {
	ID         string      `json:"id"`
	UserID     int64       `json:"-"`
	Date       string      `json:"date"`
	State      BatchState  `json:"state"`
	Progress   int         `json:"progress"`
	Files      []FileState `json:"files"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Message    string      `json:"message,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

func (b Batch) clone() Batch {
	out := b
	out.Files = make([]FileState, len(b.Files))
	copy(out.Files, b.Files)
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

// Item is one photo in the gallery.
type Item struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	FileName   string `json:"file_name"`
	URL        string `json:"url"`
	Class      string `json:"class"`
	ClassLabel string `json:"class_label"`
	Classified bool   `json:"classified"`
	TakenDate  string `json:"taken_date,omitempty"`
	TakenTime  string `json:"taken_time,omitempty"`
}

// WeekDay marks whether a day of the week has photos.
type WeekDay struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	HasPhotos bool   `json:"has_photos"`
	Count     int    `json:"count"`
}

var (
	ErrNothingToUpload = errors.New("沒有待上傳的文件")
	ErrNoUserID        = errors.New("無法獲取用戶ID，請重新登錄")
	ErrBatchNotFound   = errors.New("batch not found")
	ErrFileTooLarge    = errors.New("文件過大")
	ErrUnsupportedType = errors.New("不支援的圖片格式")
)

// Summary builds the message shown after a batch finishes and reports
// whether it counts as a failure.
func Summary(succeeded, failed int) (string, bool) {
	switch {
	case failed == 0:
		return fmt.Sprintf("成功上傳 %d 張照片", succeeded), false
	case succeeded == 0:
		return fmt.Sprintf("上傳失敗: %d 張照片無法上傳", failed), true
	default:
		return fmt.Sprintf("成功上傳 %d 張照片，%d 張上傳失敗", succeeded, failed), false
	}
}

// ClassLabel names the classification assigned upstream.
func ClassLabel(classified bool, class string) string {
	if !classified {
		return "待處理"
	}
	switch class {
	case "site_photo":
		return "工地照片"
	case "doc_photo":
		return "單據照片"
	default:
		return "其他照片"
	}
}
