package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	"pisqre/backend/pkg/storage"
)

// ── 附件模块业务错误 ──

var (
	ErrAttachmentNotFound = errors.New("附件不存在")
	ErrAttachmentTooLarge = errors.New("附件超过大小限制")
	ErrInvalidParentKind  = errors.New("不支持的附件归属类型")
)

// AttachmentParent 附件归属的实体类型
type AttachmentParent string

const (
	ParentAssignment AttachmentParent = "assignment"
	ParentAnswer     AttachmentParent = "answer"
)

// UploadInput 上传参数
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachmentService 作业与答案附件
type AttachmentService interface {
	Upload(ctx context.Context, kind AttachmentParent, parentID string, caller Caller, in UploadInput) (*dto.AttachmentResponse, error)
	List(ctx context.Context, kind AttachmentParent, parentID string) ([]dto.AttachmentResponse, error)
	// Download 将附件写入 w，返回附件信息
	Download(ctx context.Context, kind AttachmentParent, parentID, fileID string, w io.Writer) (*dto.AttachmentResponse, error)
	Delete(ctx context.Context, kind AttachmentParent, parentID, fileID string, caller Caller) error
}

type attachmentService struct {
	repo     *repository.Repository
	store    storage.FileStore
	maxBytes int64
	logger   *zap.Logger
}

// NewAttachmentService 创建 AttachmentService 实例
func NewAttachmentService(repo *repository.Repository, store storage.FileStore, maxBytes int64, logger *zap.Logger) AttachmentService {
	return &attachmentService{repo: repo, store: store, maxBytes: maxBytes, logger: logger}
}

func (s *attachmentService) Upload(ctx context.Context, kind AttachmentParent, parentID string, caller Caller, in UploadInput) (*dto.AttachmentResponse, error) {
	if err := s.authorize(ctx, kind, parentID, caller); err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, ErrAttachmentTooLarge
	}

	body := in.Body
	if s.maxBytes > 0 {
		body = newCappedReader(in.Body, s.maxBytes)
	}
	info, err := s.store.Upload(ctx, filepath.Base(in.Filename), storage.FileMeta{
		OwnerID:     caller.ID,
		ContentType: in.ContentType,
		ParentKind:  string(kind),
		ParentID:    parentID,
	}, body)
	if err != nil {
		if errors.Is(err, ErrAttachmentTooLarge) {
			s.logger.Warn("附件实际大小超过限制", zap.String("parent_id", parentID), zap.Int64("declared", in.Size))
			return nil, ErrAttachmentTooLarge
		}
		s.logger.Error("上传附件失败",
			zap.String("parent_kind", string(kind)),
			zap.String("parent_id", parentID),
			zap.Error(err),
		)
		return nil, err
	}

	resp := toAttachmentResponse(info)
	return &resp, nil
}

func (s *attachmentService) List(ctx context.Context, kind AttachmentParent, parentID string) ([]dto.AttachmentResponse, error) {
	if err := s.ensureParent(ctx, kind, parentID); err != nil {
		return nil, err
	}
	files, err := s.store.ListByParent(ctx, string(kind), parentID)
	if err != nil {
		s.logger.Error("查询附件列表失败", zap.String("parent_id", parentID), zap.Error(err))
		return nil, err
	}
	out := make([]dto.AttachmentResponse, 0, len(files))
	for i := range files {
		out = append(out, toAttachmentResponse(&files[i]))
	}
	return out, nil
}

func (s *attachmentService) Download(ctx context.Context, kind AttachmentParent, parentID, fileID string, w io.Writer) (*dto.AttachmentResponse, error) {
	if _, err := s.lookup(ctx, kind, parentID, fileID); err != nil {
		return nil, err
	}
	info, err := s.store.Download(ctx, fileID, w)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, ErrAttachmentNotFound
		}
		s.logger.Error("下载附件失败", zap.String("file_id", fileID), zap.Error(err))
		return nil, err
	}
	resp := toAttachmentResponse(info)
	return &resp, nil
}

func (s *attachmentService) Delete(ctx context.Context, kind AttachmentParent, parentID, fileID string, caller Caller) error {
	info, err := s.lookup(ctx, kind, parentID, fileID)
	if err != nil {
		return err
	}
	if info.Meta.OwnerID != caller.ID && !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := s.store.Delete(ctx, fileID); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return ErrAttachmentNotFound
		}
		s.logger.Error("删除附件失败", zap.String("file_id", fileID), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助方法 ──

// lookup 附件必须属于路径中的实体
func (s *attachmentService) lookup(ctx context.Context, kind AttachmentParent, parentID, fileID string) (*storage.FileInfo, error) {
	info, err := s.store.Info(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) || errors.Is(err, storage.ErrInvalidID) {
			return nil, ErrAttachmentNotFound
		}
		s.logger.Error("查询附件失败", zap.String("file_id", fileID), zap.Error(err))
		return nil, err
	}
	if info.Meta.ParentKind != string(kind) || info.Meta.ParentID != parentID {
		return nil, ErrAttachmentNotFound
	}
	return info, nil
}

func (s *attachmentService) ensureParent(ctx context.Context, kind AttachmentParent, parentID string) error {
	_, err := s.loadParent(ctx, kind, parentID)
	return err
}

// authorize 作业附件：发布者、被分配导师或管理员；答案附件：答题人或管理员
func (s *attachmentService) authorize(ctx context.Context, kind AttachmentParent, parentID string, caller Caller) error {
	parent, err := s.loadParent(ctx, kind, parentID)
	if err != nil {
		return err
	}
	if caller.IsAdmin() {
		return nil
	}
	switch p := parent.(type) {
	case *model.Assignment:
		if p.PosterID == caller.ID {
			return nil
		}
		if p.AssignedTutorID != nil && *p.AssignedTutorID == caller.ID {
			return nil
		}
	case *model.Answer:
		if p.AnswererID == caller.ID {
			return nil
		}
	}
	return ErrPermissionDenied
}

func (s *attachmentService) loadParent(ctx context.Context, kind AttachmentParent, parentID string) (interface{}, error) {
	switch kind {
	case ParentAssignment:
		a, err := s.repo.Assignment.GetByID(ctx, parentID)
		if err != nil {
			return nil, notFoundOr(err, ErrAssignmentNotFound)
		}
		return a, nil
	case ParentAnswer:
		a, err := s.repo.Answer.GetByID(ctx, parentID)
		if err != nil {
			return nil, notFoundOr(err, ErrAnswerNotFound)
		}
		return a, nil
	default:
		return nil, ErrInvalidParentKind
	}
}

// cappedReader 最多读取 limit+1 字节，超出 limit 时返回 ErrAttachmentTooLarge
type cappedReader struct {
	r     io.Reader
	limit int64
	n     int64
}

func newCappedReader(r io.Reader, limit int64) *cappedReader {
	return &cappedReader{r: io.LimitReader(r, limit+1), limit: limit}
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.limit {
		return 0, ErrAttachmentTooLarge
	}
	return n, err
}

func toAttachmentResponse(info *storage.FileInfo) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		FileID:      info.FileID,
		Filename:    info.Filename,
		Length:      info.Length,
		ContentType: info.Meta.ContentType,
		OwnerID:     info.Meta.OwnerID,
		UploadedAt:  info.UploadedAt.Format(dto.TimeLayout),
	}
}
