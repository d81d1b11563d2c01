package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/pkg/metrics"
)

var bookingStudent = Caller{ID: "student-1", Role: model.RoleStudent}

func setupTestBookingService() (*bookingService, *testRepos, *fakeMailer) {
	repos, repo := newTestRepos()
	mailer := &fakeMailer{}
	svc := NewBookingService(repo, mailer, metrics.New(), zap.NewNop()).(*bookingService)
	svc.now = nowForTest

	ctx := context.Background()
	_ = repos.tutors.Create(ctx, &model.Tutor{TutorID: "tutor-a", FullName: "Ada Lovelace", Email: "ada@example.com", Price: 20})
	for _, u := range []model.User{
		{UserID: "student-1", FullName: "Sam Student", Email: "sam@example.com", Role: model.RoleStudent},
		{UserID: "student-2", FullName: "Kim Student", Email: "kim@example.com", Role: model.RoleStudent},
	} {
		u := u
		_ = repos.users.Create(ctx, &u)
	}
	return svc, repos, mailer
}

// addSchedule 直接写入 tutor-a 的一个时段
func addSchedule(t *testing.T, repos *testRepos, dayOffset, hour, hours int) string {
	t.Helper()
	req := slot(dayOffset, hour, hours)
	sc := &model.Schedule{TutorID: "tutor-a", StartAt: req.StartAt, EndAt: req.EndAt}
	if err := repos.schedules.Create(context.Background(), sc); err != nil {
		t.Fatalf("写入时段失败: %v", err)
	}
	return sc.ScheduleID
}

func bookingReq(scheduleID, duration string) *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{
		ScheduleID:  scheduleID,
		CourseName:  "MATH101",
		Description: "Limits and continuity",
		Duration:    duration,
		SessionType: string(model.SessionLive),
	}
}

func TestBookingService_Book_Success(t *testing.T) {
	svc, repos, mailer := setupTestBookingService()
	ctx := context.Background()
	id := addSchedule(t, repos, 2, 9, 2)

	b, err := svc.Book(ctx, bookingStudent, bookingReq(id, "2hours"))
	if err != nil {
		t.Fatalf("Book 应成功: %v", err)
	}
	if b.Price != 40 {
		t.Errorf("期望价格 40，实际 %v", b.Price)
	}
	if b.TutorName != "Ada Lovelace" || b.StudentName != "Sam Student" {
		t.Errorf("响应应带导师与学生姓名，实际 %+v", b)
	}
	if b.Schedule == nil || !b.Schedule.Booked {
		t.Error("响应中的时段应为已预约")
	}

	if sc := repos.schedules.get(id); !sc.Booked || sc.Version != 2 {
		t.Errorf("时段应被标记为已预约且 version=2，实际 booked=%v version=%d", sc.Booked, sc.Version)
	}
	tutor, _ := repos.tutors.GetByID(ctx, "tutor-a")
	if tutor.NumOfBookings != 1 {
		t.Errorf("期望导师预约数 1，实际 %d", tutor.NumOfBookings)
	}
	if len(mailer.booked) != 1 || mailer.booked[0].To != "sam@example.com" || mailer.booked[0].Price != 40 {
		t.Fatalf("期望向学生发送 1 封确认邮件，实际 %+v", mailer.booked)
	}
}

func TestBookingService_Book_Refused(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	ctx := context.Background()
	short := addSchedule(t, repos, 2, 9, 1)
	past := addSchedule(t, repos, -1, 9, 1)
	taken := addSchedule(t, repos, 3, 9, 1)
	if _, err := svc.Book(ctx, bookingStudent, bookingReq(taken, "1hour")); err != nil {
		t.Fatalf("首次预约应成功: %v", err)
	}

	badSession := bookingReq(short, "1hour")
	badSession.SessionType = "workshop"

	tests := []struct {
		name   string
		caller Caller
		req    *dto.CreateBookingRequest
		want   error
	}{
		{"时长非法", bookingStudent, bookingReq(short, "3hours"), ErrInvalidDuration},
		{"课程形式非法", bookingStudent, badSession, ErrInvalidSessionType},
		{"导师不能预约", Caller{ID: "tutor-a", Role: model.RoleTutor}, bookingReq(short, "1hour"), ErrPermissionDenied},
		{"时段不存在", bookingStudent, bookingReq("sch-99", "1hour"), ErrScheduleNotFound},
		{"时段已开始", bookingStudent, bookingReq(past, "1hour"), ErrScheduleStarted},
		{"时长超过时段", bookingStudent, bookingReq(short, "2hours"), ErrDurationExceedsSchedule},
		{"时段已被预约", Caller{ID: "student-2", Role: model.RoleStudent}, bookingReq(taken, "1hour"), ErrScheduleAlreadyBooked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Book(ctx, tt.caller, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际 %v", tt.want, err)
			}
		})
	}

	if n := repos.bookings.count(); n != 1 {
		t.Errorf("期望仅 1 条预约，实际 %d", n)
	}
	if repos.schedules.get(short).Booked {
		t.Error("被拒绝的预约不应占用时段")
	}
}

func TestBookingService_Book_ConcurrentSingleWinner(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	ctx := context.Background()
	id := addSchedule(t, repos, 2, 9, 1)

	// 两个请求都读到未预约的同一版本后再继续
	var arrived int32
	release := make(chan struct{})
	repos.schedules.mu.Lock()
	repos.schedules.onRead = func() {
		if atomic.AddInt32(&arrived, 1) == 2 {
			close(release)
		}
		<-release
	}
	repos.schedules.mu.Unlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		refused int
	)
	for _, c := range []Caller{bookingStudent, {ID: "student-2", Role: model.RoleStudent}} {
		wg.Add(1)
		go func(c Caller) {
			defer wg.Done()
			_, err := svc.Book(ctx, c, bookingReq(id, "1hour"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrScheduleAlreadyBooked):
				refused++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(c)
	}
	wg.Wait()

	if success != 1 || refused != 1 {
		t.Fatalf("期望 1 个成功 1 个已被预约，实际成功=%d 拒绝=%d", success, refused)
	}
	if n := repos.bookings.count(); n != 1 {
		t.Errorf("期望 1 条预约，实际 %d", n)
	}
	tutor, _ := repos.tutors.GetByID(ctx, "tutor-a")
	if tutor.NumOfBookings != 1 {
		t.Errorf("期望导师预约数 1，实际 %d", tutor.NumOfBookings)
	}
}

func TestBookingService_Book_CreateFailsReleasesSchedule(t *testing.T) {
	svc, repos, mailer := setupTestBookingService()
	ctx := context.Background()
	id := addSchedule(t, repos, 2, 9, 1)
	repos.bookings.createErr = errors.New("db down")

	if _, err := svc.Book(ctx, bookingStudent, bookingReq(id, "1hour")); err == nil {
		t.Fatal("写入预约失败时应返回错误")
	}
	if repos.schedules.get(id).Booked {
		t.Error("预约未落库时时段应被释放")
	}
	tutor, _ := repos.tutors.GetByID(ctx, "tutor-a")
	if tutor.NumOfBookings != 0 {
		t.Errorf("失败时不应增加预约数，实际 %d", tutor.NumOfBookings)
	}
	if len(mailer.booked) != 0 {
		t.Error("失败时不应发邮件")
	}

	// 释放后可以再次预约
	repos.bookings.createErr = nil
	if _, err := svc.Book(ctx, bookingStudent, bookingReq(id, "1hour")); err != nil {
		t.Fatalf("释放后预约应成功: %v", err)
	}
}

func TestBookingService_Book_SideEffectFailuresSwallowed(t *testing.T) {
	svc, repos, mailer := setupTestBookingService()
	id := addSchedule(t, repos, 2, 9, 1)
	mailer.err = errors.New("smtp down")
	repos.tutors.incrErr = errors.New("counter down")

	b, err := svc.Book(context.Background(), bookingStudent, bookingReq(id, "1hour"))
	if err != nil {
		t.Fatalf("邮件与计数失败不应影响预约: %v", err)
	}
	if b.ID == "" || !repos.schedules.get(id).Booked {
		t.Error("预约应已落库且时段已占用")
	}
}

func TestBookingService_CancelReleasesSchedule(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	ctx := context.Background()
	id := addSchedule(t, repos, 2, 9, 1)
	b, err := svc.Book(ctx, bookingStudent, bookingReq(id, "1hour"))
	if err != nil {
		t.Fatalf("Book 应成功: %v", err)
	}

	if err := svc.Cancel(ctx, b.ID, Caller{ID: "student-2", Role: model.RoleStudent}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("无关学生取消期望 ErrPermissionDenied，实际 %v", err)
	}
	if err := svc.Cancel(ctx, b.ID, Caller{ID: "tutor-a", Role: model.RoleTutor}); err != nil {
		t.Fatalf("导师取消应成功: %v", err)
	}
	if err := svc.Cancel(ctx, b.ID, bookingStudent); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("重复取消期望 ErrBookingNotFound，实际 %v", err)
	}

	if repos.schedules.get(id).Booked {
		t.Error("取消后时段应恢复为未预约")
	}
	tutor, _ := repos.tutors.GetByID(ctx, "tutor-a")
	if tutor.NumOfBookings != 0 {
		t.Errorf("取消后导师预约数应为 0，实际 %d", tutor.NumOfBookings)
	}
	if _, err := svc.Book(ctx, Caller{ID: "student-2", Role: model.RoleStudent}, bookingReq(id, "1hour")); err != nil {
		t.Fatalf("取消后其他学生预约应成功: %v", err)
	}
}

func TestBookingService_GetListUpdate(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	ctx := context.Background()
	first := addSchedule(t, repos, 2, 9, 1)
	second := addSchedule(t, repos, 3, 9, 1)
	b1, _ := svc.Book(ctx, bookingStudent, bookingReq(first, "1hour"))
	_, _ = svc.Book(ctx, Caller{ID: "student-2", Role: model.RoleStudent}, bookingReq(second, "1hour"))

	if _, err := svc.Get(ctx, b1.ID, Caller{ID: "student-2", Role: model.RoleStudent}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("他人查看期望 ErrPermissionDenied，实际 %v", err)
	}
	if _, err := svc.Get(ctx, b1.ID, Caller{ID: "tutor-a", Role: model.RoleTutor}); err != nil {
		t.Errorf("导师查看应成功: %v", err)
	}

	page := &dto.PaginationRequest{}
	mine, total, _ := svc.ListMine(ctx, "student-1", page)
	if total != 1 || len(mine) != 1 || mine[0].ID != b1.ID {
		t.Errorf("ListMine 应只返回本人预约，实际 total=%d %+v", total, mine)
	}
	if _, total, _ := svc.ListForTutor(ctx, "tutor-a", Caller{ID: "tutor-a", Role: model.RoleTutor}, page); total != 2 {
		t.Errorf("导师应看到 2 条预约，实际 %d", total)
	}
	if _, _, err := svc.ListForTutor(ctx, "tutor-a", bookingStudent, page); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("学生查看导师预约期望 ErrPermissionDenied，实际 %v", err)
	}
	if _, total, _ := svc.ListAll(ctx, page); total != 2 {
		t.Errorf("ListAll 期望 2 条，实际 %d", total)
	}

	name, demo := "  MATH102 ", string(model.SessionDemo)
	got, err := svc.Update(ctx, b1.ID, bookingStudent, &dto.UpdateBookingRequest{CourseName: &name, SessionType: &demo})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if got.CourseName != "MATH102" || got.SessionType != "demo" {
		t.Errorf("修改后字段不正确: %+v", got)
	}
	if _, err := svc.Update(ctx, b1.ID, Caller{ID: "tutor-a", Role: model.RoleTutor}, &dto.UpdateBookingRequest{CourseName: &name}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("导师修改期望 ErrPermissionDenied，实际 %v", err)
	}
	blank := " "
	if _, err := svc.Update(ctx, b1.ID, bookingStudent, &dto.UpdateBookingRequest{CourseName: &blank}); !errors.Is(err, ErrEmptyCourseName) {
		t.Errorf("空课程名期望 ErrEmptyCourseName，实际 %v", err)
	}
}
