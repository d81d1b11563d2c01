package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrFileNotFound = errors.New("文件不存在")
	ErrInvalidID    = errors.New("文件 ID 格式错误")
)

// FileMeta 附件元数据，随文件写入 GridFS metadata 字段
type FileMeta struct {
	OwnerID     string `bson:"owner_id"     json:"owner_id"`
	ContentType string `bson:"content_type" json:"content_type"`
	ParentKind  string `bson:"parent_kind"  json:"parent_kind"` // assignment | answer
	ParentID    string `bson:"parent_id"    json:"parent_id"`
}

// FileInfo 附件描述
type FileInfo struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	Length     int64     `json:"length"`
	UploadedAt time.Time `json:"uploaded_at"`
	Meta       FileMeta  `json:"meta"`
}

// FileStore 附件存储接口
type FileStore interface {
	Upload(ctx context.Context, filename string, meta FileMeta, src io.Reader) (*FileInfo, error)
	Download(ctx context.Context, fileID string, dst io.Writer) (*FileInfo, error)
	Info(ctx context.Context, fileID string) (*FileInfo, error)
	Delete(ctx context.Context, fileID string) error
	ListByParent(ctx context.Context, kind, parentID string) ([]FileInfo, error)
}

type gridFSStore struct {
	db     *mongo.Database
	bucket string
}

// NewGridFSStore 基于 GridFS bucket 的附件存储
func NewGridFSStore(db *mongo.Database, bucket string) FileStore {
	return &gridFSStore{db: db, bucket: bucket}
}

// filesDoc 对应 <bucket>.files 集合中的文档
type filesDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Filename   string             `bson:"filename"`
	Metadata   FileMeta           `bson:"metadata"`
}

func (d filesDoc) toInfo() FileInfo {
	return FileInfo{
		FileID:     d.ID.Hex(),
		Filename:   d.Filename,
		Length:     d.Length,
		UploadedAt: d.UploadDate,
		Meta:       d.Metadata,
	}
}

// openBucket 每次操作新建 bucket，使读写截止时间只作用于本次请求
func (s *gridFSStore) openBucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucket))
	if err != nil {
		return nil, fmt.Errorf("打开 GridFS bucket 失败: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *gridFSStore) Upload(ctx context.Context, filename string, meta FileMeta, src io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := s.openBucket(ctx)
	if err != nil {
		return nil, err
	}

	id := primitive.NewObjectID()
	counter := &countingReader{r: src}
	opts := options.GridFSUpload().SetMetadata(meta)
	if err := b.UploadFromStreamWithID(id, filename, counter, opts); err != nil {
		return nil, fmt.Errorf("上传附件失败: %w", err)
	}

	return &FileInfo{
		FileID:     id.Hex(),
		Filename:   filename,
		Length:     counter.n,
		UploadedAt: time.Now().UTC(),
		Meta:       meta,
	}, nil
}

func (s *gridFSStore) Download(ctx context.Context, fileID string, dst io.Writer) (*FileInfo, error) {
	info, err := s.Info(ctx, fileID)
	if err != nil {
		return nil, err
	}
	b, err := s.openBucket(ctx)
	if err != nil {
		return nil, err
	}
	oid, _ := primitive.ObjectIDFromHex(fileID)
	if _, err := b.DownloadToStream(oid, dst); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("下载附件失败: %w", err)
	}
	return info, nil
}

func (s *gridFSStore) Info(ctx context.Context, fileID string) (*FileInfo, error) {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, ErrInvalidID
	}
	var doc filesDoc
	err = s.db.Collection(s.bucket+".files").FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("查询附件失败: %w", err)
	}
	info := doc.toInfo()
	return &info, nil
}

func (s *gridFSStore) Delete(ctx context.Context, fileID string) error {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return ErrInvalidID
	}
	b, err := s.openBucket(ctx)
	if err != nil {
		return err
	}
	if err := b.Delete(oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("删除附件失败: %w", err)
	}
	return nil
}

func (s *gridFSStore) ListByParent(ctx context.Context, kind, parentID string) ([]FileInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}})
	cur, err := s.db.Collection(s.bucket+".files").Find(ctx, bson.M{"metadata.parent_kind": kind, "metadata.parent_id": parentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询附件列表失败: %w", err)
	}
	defer cur.Close(ctx)

	files := make([]FileInfo, 0)
	for cur.Next(ctx) {
		var doc filesDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("解析附件记录失败: %w", err)
		}
		files = append(files, doc.toInfo())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
