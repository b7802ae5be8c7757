package usecases

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/carelog/daycare-bot/internal/integration/line"
	"github.com/carelog/daycare-bot/internal/integration/openai"
	"github.com/carelog/daycare-bot/internal/report"
	"github.com/carelog/daycare-bot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushCall struct {
	to   string
	msgs []entities.Message
}

type fakeMessenger struct {
	calls  []pushCall
	failTo map[string]error
}

func (f *fakeMessenger) Push(_ context.Context, to string, msgs []entities.Message) error {
	if err := f.failTo[to]; err != nil {
		return err
	}
	f.calls = append(f.calls, pushCall{to: to, msgs: msgs})
	return nil
}

type fakeReplier struct {
	tokens []string
	msgs   [][]entities.Message
}

func (f *fakeReplier) Reply(_ context.Context, token string, msgs []entities.Message) error {
	f.tokens = append(f.tokens, token)
	f.msgs = append(f.msgs, msgs)
	return nil
}

type fakeSource struct {
	elders  []entities.Elder
	records map[string][]entities.HealthRecord
	fail    map[string]error
	since   time.Time
}

func (f *fakeSource) ListElders(context.Context) ([]entities.Elder, error) {
	return f.elders, nil
}

func (f *fakeSource) FindElder(_ context.Context, name string) (entities.Elder, bool, error) {
	for _, e := range f.elders {
		if e.Name == name {
			return e, true, nil
		}
	}
	return entities.Elder{}, false, nil
}

func (f *fakeSource) RecentRecords(_ context.Context, name string, since time.Time) ([]entities.HealthRecord, error) {
	f.since = since
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return f.records[name], nil
}

type fakeAgent struct {
	resp *openai.AgentResponse
	err  error
}

func (f *fakeAgent) InterpretUserQuery(context.Context, string, []string) (*openai.AgentResponse, error) {
	return f.resp, f.err
}

type zeroPicker struct{}

func (zeroPicker) Intn(int) int { return 0 }

func rec(t *testing.T, date, sys, dia, temp string) entities.HealthRecord {
	t.Helper()
	r, err := entities.ParseHealthRecord(date, "09:00", sys, dia, temp)
	require.NoError(t, err)
	return r
}

func newTestRepo(t *testing.T) *repository.SQLiteRepository {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type fixture struct {
	uc        *ReportUseCase
	messenger *fakeMessenger
	source    *fakeSource
	repo      *repository.SQLiteRepository
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	messenger := &fakeMessenger{failTo: map[string]error{}}
	source := &fakeSource{
		elders: []entities.Elder{
			{Name: "王奶奶", FamilyContactID: "U-wang"},
			{Name: "李爺爺", FamilyContactID: "U-lee"},
			{Name: "張阿姨"},
		},
		records: map[string][]entities.HealthRecord{
			"王奶奶": {
				rec(t, "2024-11-20", "150", "95", "36.5"),
				rec(t, "2024-11-25", "145", "92", "37.8"),
				rec(t, "2024-11-28", "85", "55", "36.4"),
			},
			"李爺爺": {rec(t, "2024-11-29", "120", "80", "36.6")},
		},
		fail: map[string]error{},
	}
	repo := newTestRepo(t)
	renderer := report.NewRenderer(report.ChartOptions{}, zeroPicker{})
	uc := NewReportUseCase(renderer, messenger, source, repo, BatchOptions{AnomalyThreshold: 3, WindowDays: 30}).
		WithClock(func() time.Time { return now })
	return &fixture{uc: uc, messenger: messenger, source: source, repo: repo}
}

var december1 = time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC)

func TestDispatch_MissingRecordsIssuesNoPush(t *testing.T) {
	f := newFixture(t, december1)

	for _, action := range []string{ActionSendTextReport, ActionSendHealthReport, ActionSendFlexReport} {
		_, err := f.uc.Dispatch(context.Background(), NotifyRequest{Action: action, UserID: "U1", ElderName: "王奶奶"})

		var verr *entities.ValidationError
		require.True(t, errors.As(err, &verr), action)
		assert.Equal(t, "records", verr.Field)
	}
	assert.Empty(t, f.messenger.calls)

	logs, err := f.repo.ListNotifications(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDispatch_ValidationNamesField(t *testing.T) {
	f := newFixture(t, december1)
	records := []entities.HealthRecord{rec(t, "2024-12-01", "120", "80", "")}

	cases := map[string]struct {
		req   NotifyRequest
		field string
	}{
		"no action":       {NotifyRequest{}, "action"},
		"unknown action":  {NotifyRequest{Action: "explode"}, "action"},
		"message user":    {NotifyRequest{Action: ActionSendMessage, Message: "hi"}, "userId"},
		"message text":    {NotifyRequest{Action: ActionSendMessage, UserID: "U1"}, "message"},
		"report elder":    {NotifyRequest{Action: ActionSendTextReport, UserID: "U1", Records: records}, "elderName"},
		"alert reading":   {NotifyRequest{Action: ActionSendHealthAlert, UserID: "U1", ElderName: "王奶奶"}, "healthData"},
		"empty records":   {NotifyRequest{Action: ActionSendFlexReport, UserID: "U1", ElderName: "王奶奶", Records: []entities.HealthRecord{}}, "records"},
		"report no user":  {NotifyRequest{Action: ActionSendHealthReport, ElderName: "王奶奶", Records: records}, "userId"},
		"alert no user":   {NotifyRequest{Action: ActionSendHealthAlert, ElderName: "王奶奶"}, "userId"},
		"alert no elder":  {NotifyRequest{Action: ActionSendHealthAlert, UserID: "U1"}, "elderName"},
		"flex no elder":   {NotifyRequest{Action: ActionSendFlexReport, UserID: "U1", Records: records}, "elderName"},
		"text no records": {NotifyRequest{Action: ActionSendTextReport, UserID: "U1", ElderName: "王奶奶"}, "records"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.uc.Dispatch(context.Background(), tc.req)
			require.ErrorIs(t, err, entities.ErrInvalidRequest)
			var verr *entities.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Empty(t, f.messenger.calls)
}

func TestDispatch_ReportModes(t *testing.T) {
	records := []entities.HealthRecord{
		rec(t, "2024-12-01", "150", "95", ""),
		rec(t, "2024-12-05", "110", "70", "36.5"),
	}
	cases := []struct {
		action string
		types  []entities.MessageType
	}{
		{ActionSendTextReport, []entities.MessageType{entities.MessageText}},
		{ActionSendHealthReport, []entities.MessageType{entities.MessageText, entities.MessageImage}},
		{ActionSendFlexReport, []entities.MessageType{entities.MessageCard, entities.MessageImage}},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			f := newFixture(t, december1)

			res, err := f.uc.Dispatch(context.Background(), NotifyRequest{
				Action: tc.action, UserID: "U1", ElderName: "王奶奶", Records: records,
			})
			require.NoError(t, err)
			assert.True(t, res.Success)

			require.Len(t, f.messenger.calls, 1)
			assert.Equal(t, "U1", f.messenger.calls[0].to)
			var types []entities.MessageType
			for _, m := range f.messenger.calls[0].msgs {
				types = append(types, m.Type)
			}
			assert.Equal(t, tc.types, types)

			logs, err := f.repo.ListNotifications(context.Background(), "王奶奶", 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, tc.action, logs[0].Action)
			assert.True(t, logs[0].Success)
		})
	}
}

func TestDispatch_SendMessage(t *testing.T) {
	f := newFixture(t, december1)

	res, err := f.uc.Dispatch(context.Background(), NotifyRequest{Action: ActionSendMessage, UserID: "U1", Message: "明天停課"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, f.messenger.calls, 1)
	assert.Equal(t, "明天停課", f.messenger.calls[0].msgs[0].Text)
}

func TestDispatch_UpstreamFailurePassesThrough(t *testing.T) {
	f := newFixture(t, december1)
	upstream := &entities.UpstreamError{Service: "line", StatusCode: 400, Body: `{"message":"Invalid reply token"}`}
	f.messenger.failTo["U1"] = upstream

	_, err := f.uc.Dispatch(context.Background(), NotifyRequest{Action: ActionSendMessage, UserID: "U1", Message: "hi"})

	var got *entities.UpstreamError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, upstream.Body, got.Body)

	logs, err := f.repo.ListNotifications(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Contains(t, logs[0].Error, "Invalid reply token")
}

func TestDispatch_HealthAlert(t *testing.T) {
	f := newFixture(t, december1)

	normal := rec(t, "2024-12-01", "120", "80", "36.5")
	res, err := f.uc.Dispatch(context.Background(), NotifyRequest{
		Action: ActionSendHealthAlert, UserID: "U1", ElderName: "王奶奶", HealthData: &normal,
	})
	require.NoError(t, err)
	assert.Equal(t, "normal reading", res.Message)
	assert.Empty(t, f.messenger.calls)

	fever := rec(t, "2024-12-01", "", "", "38.6")
	res, err = f.uc.Dispatch(context.Background(), NotifyRequest{
		Action: ActionSendHealthAlert, UserID: "U1", ElderName: "王奶奶", HealthData: &fever,
	})
	require.NoError(t, err)
	assert.Equal(t, "alert sent", res.Message)
	require.Len(t, f.messenger.calls, 1)
	assert.Contains(t, f.messenger.calls[0].msgs[0].Text, "38.6")
}

func TestRenderReport_NeverExceedsLimit(t *testing.T) {
	f := newFixture(t, december1)

	for _, mode := range []ReportMode{ModeText, ModeChart, ModeCard} {
		msgs := f.uc.RenderReport(mode, "王奶奶", f.source.records["王奶奶"])
		assert.LessOrEqual(t, len(msgs), line.MaxMessages)
	}
	assert.Len(t, truncate(make([]entities.Message, 9)), line.MaxMessages)
}

func TestIsDue(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 12, d, 9, 0, 0, 0, time.UTC) }

	cases := []struct {
		name      string
		day       time.Time
		anomalies int
		force     bool
		want      bool
	}{
		{"first of month", day(1), 0, false, true},
		{"fifteenth below threshold", day(15), 2, false, false},
		{"fifteenth at threshold", day(15), 3, false, true},
		{"ordinary day", day(10), 9, false, false},
		{"forced", day(10), 0, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDue(tc.day, tc.anomalies, 3, tc.force))
		})
	}
}

func TestRunBatch_FirstOfMonth(t *testing.T) {
	f := newFixture(t, december1)

	res, err := f.uc.RunBatch(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 2, res.Sent)
	assert.Empty(t, res.Errors)
	require.Len(t, f.messenger.calls, 2)
	assert.Equal(t, "U-wang", f.messenger.calls[0].to)
	assert.Equal(t, entities.MessageCard, f.messenger.calls[0].msgs[0].Type)
	assert.Equal(t, "2024-11-01", f.source.since.Format(entities.DateLayout))
}

func TestRunBatch_ContinuesAfterFailingElder(t *testing.T) {
	f := newFixture(t, december1)
	f.source.fail["王奶奶"] = errors.New("sheet unavailable")
	f.source.elders = append(f.source.elders, entities.Elder{Name: "陳伯伯", FamilyContactID: "U-chen"})
	f.source.records["陳伯伯"] = []entities.HealthRecord{rec(t, "2024-11-30", "118", "76", "")}
	f.messenger.failTo["U-chen"] = &entities.UpstreamError{Service: "line", StatusCode: 500, Body: "oops"}

	res, err := f.uc.RunBatch(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "王奶奶", res.Errors[0].ElderName)
	assert.Contains(t, res.Errors[0].Error, "sheet unavailable")
	assert.Equal(t, "陳伯伯", res.Errors[1].ElderName)
	require.Len(t, f.messenger.calls, 1)
	assert.Equal(t, "U-lee", f.messenger.calls[0].to)
}

func TestRunBatch_MidMonthNeedsAnomalies(t *testing.T) {
	f := newFixture(t, time.Date(2024, 12, 15, 9, 0, 0, 0, time.UTC))
	f.source.records["王奶奶"] = []entities.HealthRecord{
		rec(t, "2024-12-10", "150", "95", "36.5"),
		rec(t, "2024-12-11", "145", "92", "37.8"),
		rec(t, "2024-12-12", "85", "55", "36.4"),
	}
	f.source.records["李爺爺"] = []entities.HealthRecord{rec(t, "2024-12-12", "120", "80", "36.6")}

	res, err := f.uc.RunBatch(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, f.messenger.calls, 1)
	assert.Equal(t, "U-wang", f.messenger.calls[0].to)
}

func TestRunBatch_SkipsAlreadyNotifiedUnlessForced(t *testing.T) {
	now := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	require.NoError(t, f.repo.SaveNotification(context.Background(), &entities.NotificationLog{
		ElderName: "王奶奶", Target: "U-wang", Action: ActionBatchNotify, Success: true, SentAt: now.Add(-time.Hour),
	}))

	res, err := f.uc.RunBatch(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 2, res.Skipped)

	res, err = f.uc.RunBatch(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
}

func TestDispatch_BatchNotify(t *testing.T) {
	f := newFixture(t, time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC))

	res, err := f.uc.Dispatch(context.Background(), NotifyRequest{Action: ActionBatchNotify, Force: true})
	require.NoError(t, err)

	batch := res.Data.(*BatchResult)
	assert.Equal(t, 2, batch.Sent)
	assert.Contains(t, res.Message, "2 sent")
}

func TestHandleEvents(t *testing.T) {
	f := newFixture(t, december1)
	replier := &fakeReplier{}
	f.uc.WithReplier(replier)

	res, err := f.uc.Dispatch(context.Background(), NotifyRequest{Events: []line.Event{
		{Type: line.EventTypeFollow, ReplyToken: "rt-follow", Source: line.Source{Type: "user", UserID: "U-new"}},
		{Type: line.EventTypeMessage, ReplyToken: "rt-text", Source: line.Source{UserID: "U-wang"},
			Message: &line.EventMessage{Type: "text", Text: "請問王奶奶最近好嗎"}},
		{Type: "unfollow", Source: line.Source{UserID: "U-old"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "handled 2 of 3 events", res.Message)

	require.Equal(t, []string{"rt-follow", "rt-text"}, replier.tokens)
	assert.Contains(t, replier.msgs[0][0].Text, "U-new")
	assert.Equal(t, entities.MessageCard, replier.msgs[1][0].Type)
	assert.Empty(t, f.messenger.calls)
}

func TestHandleEvents_WithoutReplier(t *testing.T) {
	f := newFixture(t, december1)

	res, err := f.uc.HandleEvents(context.Background(), []line.Event{
		{Type: line.EventTypeFollow, ReplyToken: "rt", Source: line.Source{UserID: "U1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "handled 0 of 1 events", res.Message)
}

func TestHandleQuery_Agent(t *testing.T) {
	f := newFixture(t, december1)

	msgs, err := f.uc.HandleQuery(context.Background(), "你好", ModeText)
	require.NoError(t, err)
	assert.Equal(t, helpText, msgs[0].Text)

	f.uc.WithAgent(&fakeAgent{resp: &openai.AgentResponse{
		CommandName: openai.CommandHealthReport, ElderName: "李爺爺", UserMessage: "好的，為您查詢",
	}})
	msgs, err = f.uc.HandleQuery(context.Background(), "阿公最近血壓怎樣", ModeText)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "好的，為您查詢", msgs[0].Text)
	assert.Contains(t, msgs[1].Text, "李爺爺 的健康紀錄報告")

	f.uc.WithAgent(&fakeAgent{resp: &openai.AgentResponse{CommandName: openai.CommandGeneralQuery, UserMessage: "不客氣！"}})
	msgs, err = f.uc.HandleQuery(context.Background(), "謝謝", ModeText)
	require.NoError(t, err)
	assert.Equal(t, "不客氣！", msgs[0].Text)

	f.uc.WithAgent(&fakeAgent{err: errors.New("rate limited")})
	msgs, err = f.uc.HandleQuery(context.Background(), "謝謝", ModeText)
	require.NoError(t, err)
	assert.Equal(t, helpText, msgs[0].Text)
}

func TestReportForElder_NoRecords(t *testing.T) {
	f := newFixture(t, december1)

	msgs, err := f.uc.ReportForElder(context.Background(), "張阿姨", ModeCard)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "目前沒有 張阿姨")
}

func TestGetElderHealth(t *testing.T) {
	f := newFixture(t, december1)

	h, err := f.uc.GetElderHealth(context.Background(), "王奶奶", 7)
	require.NoError(t, err)
	assert.Equal(t, "2024-11-24", h.Since)
	assert.Equal(t, 3, h.Stats.TotalCount)
	assert.Equal(t, 2, h.Stats.HighBPCount)

	_, err = f.uc.GetElderHealth(context.Background(), "", 0)
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)

	_, err = f.uc.GetElderHealth(context.Background(), "陳伯伯", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMatchElderName(t *testing.T) {
	names := []string{"王奶奶", "王奶", "李爺爺"}

	assert.Equal(t, "王奶奶", MatchElderName("王奶奶今天好嗎", names))
	assert.Equal(t, "李爺爺", MatchElderName("李爺爺", names))
	assert.Equal(t, "", MatchElderName("天氣如何", names))
}

func TestCareRecords_Lifecycle(t *testing.T) {
	repo := newTestRepo(t)
	uc := NewCareRecordUseCase(repo)
	uc.now = func() time.Time { return december1 }
	uc.newID = func() string { return "fixed-id" }
	ctx := context.Background()

	_, err := uc.Create(ctx, entities.KindPlan, CareRecordInput{Date: "2024-12-01"})
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)

	_, err = uc.Create(ctx, entities.KindActivity, CareRecordInput{Title: "散步", Date: "2024-12-01", Status: "active"})
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)

	plan, err := uc.Create(ctx, entities.KindPlan, CareRecordInput{
		Title: "復健計畫", Date: "2024/12/1", ElderName: " 王奶奶 ", Participants: []string{"王奶奶", " ", "物理治療師"},
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", plan.ID)
	assert.Equal(t, "2024-12-01", plan.Date)
	assert.Equal(t, entities.PlanDraft, plan.Status)
	assert.Equal(t, "王奶奶", plan.ElderName)
	assert.Equal(t, []string{"王奶奶", "物理治療師"}, plan.Participants)

	uc.now = func() time.Time { return december1.Add(time.Hour) }
	updated, err := uc.Update(ctx, entities.KindPlan, "fixed-id", CareRecordInput{
		Title: "復健計畫", Date: "2024-12-01", Status: entities.PlanActive,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.PlanActive, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = uc.Update(ctx, entities.KindPlan, "fixed-id", CareRecordInput{Title: "x", Date: "2024-12-01", Status: "paused"})
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)

	list, err := uc.List(ctx, entities.RecordFilter{Kind: entities.KindPlan, From: "2024/11/30"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = uc.List(ctx, entities.RecordFilter{From: "yesterday"})
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)

	require.NoError(t, uc.Delete(ctx, entities.KindPlan, "fixed-id"))
	_, err = uc.Get(ctx, entities.KindPlan, "fixed-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
