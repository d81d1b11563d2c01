package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoAssignments = errors.New("暂无可导出的作业")
	ErrExportGenerateFail  = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写出。
type ExportService interface {
	// ExportAssignments 管理员导出全部作业为 Excel
	ExportAssignments(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportTutorDeadlines 导出导师名下未答作业的截止时间为 iCalendar
	ExportTutorDeadlines(ctx context.Context, tutorID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, baseURL string, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, baseURL: baseURL, logger: logger, now: time.Now}
}

// ────────────────────── ExportAssignments ──────────────────────
//
// Sheet "作业"：一行一份作业
// Sheet "统计"：按状态计数

func (s *exportService) ExportAssignments(ctx context.Context) (*bytes.Buffer, string, error) {
	list, _, err := s.repo.Assignment.List(ctx, &repository.AssignmentFilters{Sort: "created_at"}, 0, 0)
	if err != nil {
		s.logger.Error("查询作业失败", zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoAssignments
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "作业"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"编号", "课程", "金额", "截止时间", "发布者", "状态", "导师", "已审核", "创建时间"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "D", "D", 22)
	f.SetColWidth(sheet, "E", "G", 20)
	f.SetColWidth(sheet, "I", "I", 22)

	counts := make(map[model.AssignmentStatus]int)
	for i := range list {
		a := &list[i]
		row := i + 2
		poster := a.PosterID
		if a.Poster != nil {
			poster = a.Poster.FullName
		}
		tutor := "-"
		if a.AssignedTutor != nil {
			tutor = a.AssignedTutor.FullName
		}
		verified := "否"
		if a.AnswerVerified {
			verified = "是"
		}

		f.SetCellValue(sheet, cell("A", row), a.ExternalID)
		f.SetCellValue(sheet, cell("B", row), a.CourseName)
		f.SetCellValue(sheet, cell("C", row), a.Amount)
		f.SetCellValue(sheet, cell("D", row), a.Deadline.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, cell("E", row), poster)
		f.SetCellValue(sheet, cell("F", row), a.StatusLabel())
		f.SetCellValue(sheet, cell("G", row), tutor)
		f.SetCellValue(sheet, cell("H", row), verified)
		f.SetCellValue(sheet, cell("I", row), a.CreatedAt.Format("2006-01-02 15:04"))
		counts[a.Status]++
	}

	summary := "统计"
	f.NewSheet(summary)
	f.SetCellValue(summary, "A1", "状态")
	f.SetCellValue(summary, "B1", "数量")
	f.SetCellStyle(summary, "A1", "B1", headerStyle)
	f.SetColWidth(summary, "A", "A", 24)
	statuses := []model.AssignmentStatus{
		model.AssignmentSubmitted,
		model.AssignmentSentToTutor,
		model.AssignmentAssignedToTutor,
		model.AssignmentAnswerSubmitted,
		model.AssignmentCompleted,
		model.AssignmentAnswerVerification,
	}
	for i, st := range statuses {
		f.SetCellValue(summary, cell("A", i+2), string(st))
		f.SetCellValue(summary, cell("B", i+2), counts[st])
	}
	f.SetCellValue(summary, cell("A", len(statuses)+2), "合计")
	f.SetCellValue(summary, cell("B", len(statuses)+2), len(list))

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("assignments_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ────────────────────── ExportTutorDeadlines ──────────────────────
//
// 每份未答作业生成一个 VEVENT，时间段为截止前一小时至截止时刻。

func (s *exportService) ExportTutorDeadlines(ctx context.Context, tutorID string) (*bytes.Buffer, string, error) {
	list, _, err := s.repo.Assignment.List(ctx, &repository.AssignmentFilters{
		AssignedTutorID: tutorID,
		Statuses:        []model.AssignmentStatus{model.AssignmentAssignedToTutor},
		Sort:            "deadline",
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询导师作业失败", zap.String("tutor_id", tutorID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Pisqre//Assignment Deadlines//EN")

	stamp := s.now().UTC()
	for i := range list {
		a := &list[i]
		evt := cal.AddEvent(fmt.Sprintf("%s@pisqre", a.AssignmentID))
		evt.SetDtStampTime(stamp)
		evt.SetCreatedTime(a.CreatedAt.UTC())
		evt.SetStartAt(a.Deadline.Add(-time.Hour).UTC())
		evt.SetEndAt(a.Deadline.UTC())
		evt.SetSummary(fmt.Sprintf("Deadline: %s (%s)", a.CourseName, a.ExternalID))
		evt.SetDescription(a.Description)
		if s.baseURL != "" {
			evt.SetURL(fmt.Sprintf("%s/api/v1/assignments/%s", s.baseURL, a.AssignmentID))
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "deadlines.ics", nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
