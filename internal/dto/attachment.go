package dto

// AttachmentResponse 附件信息
type AttachmentResponse struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Length      int64  `json:"length"`
	ContentType string `json:"content_type"`
	OwnerID     string `json:"owner_id"`
	UploadedAt  string `json:"uploaded_at"`
}
