package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-research/internal/enrich"
	"github.com/sells-group/contact-research/internal/model"
	"github.com/sells-group/contact-research/internal/research"
)

// fakeEnricher answers from the organization key and the person's name.
type fakeEnricher struct {
	mu        sync.Mutex
	orgCalls  []string
	personOrg map[string]*model.OrganizationFacts

	jitter   bool
	orgErr   map[string]error
	personEr map[string]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFake() *fakeEnricher {
	return &fakeEnricher{
		personOrg: make(map[string]*model.OrganizationFacts),
		orgErr:    make(map[string]error),
		personEr:  make(map[string]error),
	}
}

func (f *fakeEnricher) enter() func() {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeEnricher) Organization(_ context.Context, name string, _ enrich.OrganizationHints) (*model.OrganizationFacts, error) {
	defer f.enter()()
	f.mu.Lock()
	f.orgCalls = append(f.orgCalls, name)
	f.mu.Unlock()
	if err := f.orgErr[name]; err != nil {
		return nil, err
	}
	return &model.OrganizationFacts{
		Website:              "https://" + name + ".example.org",
		IntermediateDistrict: model.Unknown,
		TotalEnrollment:      "1000",
		RuralClassification:  model.Unknown,
		News:                 []model.NewsItem{{Title: name + " news", URL: "https://n.com/" + name, Summary: "s"}},
	}, nil
}

func (f *fakeEnricher) Person(_ context.Context, row model.ContactRow, org *model.OrganizationFacts) (*model.PersonFacts, error) {
	defer f.enter()()
	f.mu.Lock()
	f.personOrg[row.FullName()] = org
	f.mu.Unlock()
	if err := f.personEr[row.FullName()]; err != nil {
		return nil, err
	}
	return &model.PersonFacts{
		Tenure:      model.Unknown,
		LinkedInURL: model.Unknown,
		ProfileURL:  model.Unknown,
		Background:  "background of " + row.FullName(),
	}, nil
}

func (f *fakeEnricher) personCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.personOrg)
}

func contact(first, last, org string) model.ContactRow {
	return model.ContactRow{FirstName: first, LastName: last, OrganizationName: org}
}

func TestRun_SharedOrganization(t *testing.T) {
	f := newFake()
	rows := []model.ContactRow{
		{FirstName: "Ann", LastName: "Lee", OrganizationName: "Riverside", Title: "Superintendent", WorkPhone: "555-0100"},
		{FirstName: "Bo", LastName: "Kim", OrganizationName: "Riverside", Email: "bo@riverside.org"},
	}

	res, err := NewRunner(f, Options{}).Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"Riverside"}, f.orgCalls)
	assert.Equal(t, 2, f.personCalls())
	assert.Equal(t, 1, res.Organizations)
	assert.NotEmpty(t, res.BatchID)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Records, 2)

	ann, bo := res.Records[0], res.Records[1]
	assert.Equal(t, "Ann Lee", ann.FullName)
	assert.Equal(t, "Bo Kim", bo.FullName)
	assert.Equal(t, ann.DistrictWebsite, bo.DistrictWebsite)
	assert.Equal(t, ann.News, bo.News)
	assert.Equal(t, "background of Ann Lee", ann.Background)
	assert.Equal(t, "background of Bo Kim", bo.Background)
	assert.Equal(t, "Superintendent", ann.Title)
	assert.Equal(t, model.Unknown, bo.Title)
	assert.Equal(t, "555-0100", ann.Phone)
	assert.Equal(t, model.Unknown, bo.Phone)
	assert.Equal(t, "bo@riverside.org", bo.Email)

	// Person research sees the organization facts.
	require.NotNil(t, f.personOrg["Bo Kim"])
	assert.Equal(t, "https://Riverside.example.org", f.personOrg["Bo Kim"].Website)
}

func TestRun_DeduplicatesTrimmedKeys(t *testing.T) {
	f := newFake()
	rows := []model.ContactRow{
		contact("A", "One", "Riverside"),
		contact("B", "Two", " Riverside "),
		contact("C", "Three", "Lakeview"),
		contact("D", "Four", "riverside"),
		contact("E", "Five", "Lakeview"),
	}

	res, err := NewRunner(f, Options{MaxConcurrency: 2}).Run(context.Background(), rows)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Riverside", "Lakeview", "riverside"}, f.orgCalls)
	assert.Equal(t, 3, res.Organizations)
	assert.Equal(t, 5, f.personCalls())
	assert.Equal(t, "Riverside", res.Records[1].DistrictName)
}

func TestRun_NoOrganization(t *testing.T) {
	f := newFake()
	rows := []model.ContactRow{contact("Ann", "Lee", ""), contact("Bo", "Kim", "   ")}

	res, err := NewRunner(f, Options{}).Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Empty(t, f.orgCalls)
	assert.Equal(t, 2, f.personCalls())
	assert.Nil(t, f.personOrg["Ann Lee"])
	for _, rec := range res.Records {
		assert.Equal(t, model.Unknown, rec.DistrictName)
		assert.Equal(t, model.Unknown, rec.DistrictWebsite)
		assert.NotNil(t, rec.News)
		assert.Empty(t, rec.News)
	}
}

func TestRun_PreservesOrderUnderJitter(t *testing.T) {
	f := newFake()
	f.jitter = true
	var rows []model.ContactRow
	for i := 0; i < 40; i++ {
		rows = append(rows, contact(fmt.Sprintf("P%d", i), "Test", fmt.Sprintf("Org%d", i%7)))
	}

	res, err := NewRunner(f, Options{MaxConcurrency: 8}).Run(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, res.Records, len(rows))
	for i, rec := range res.Records {
		assert.Equal(t, rows[i].FullName(), rec.FullName)
		assert.Equal(t, rows[i].OrganizationKey(), rec.DistrictName)
		assert.Equal(t, "https://"+rows[i].OrganizationKey()+".example.org", rec.DistrictWebsite)
	}
	assert.Equal(t, 7, res.Organizations)
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	f := newFake()
	f.jitter = true
	var rows []model.ContactRow
	for i := 0; i < 30; i++ {
		rows = append(rows, contact(fmt.Sprintf("P%d", i), "Test", fmt.Sprintf("Org%d", i)))
	}

	_, err := NewRunner(f, Options{MaxConcurrency: 3}).Run(context.Background(), rows)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.maxInFlight.Load(), int32(3))
}

func TestRun_EmptyBatch(t *testing.T) {
	f := newFake()
	res, err := NewRunner(f, Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
	assert.Empty(t, f.orgCalls)
}

func TestRun_InvalidRow(t *testing.T) {
	f := newFake()
	rows := []model.ContactRow{contact("Ann", "Lee", "Riverside"), contact("", "Kim", "Riverside")}

	res, err := NewRunner(f, Options{}).Run(context.Background(), rows)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidRow)
	assert.Contains(t, err.Error(), "row 1")
	assert.Empty(t, f.orgCalls)
	assert.Zero(t, f.personCalls())
}

func TestRun_AbortPolicy(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeEnricher)
	}{
		{
			name: "organization failure",
			setup: func(f *fakeEnricher) {
				f.orgErr["Lakeview"] = &research.ProviderError{Provider: "fake", StatusCode: 500, Err: errors.New("boom")}
			},
		},
		{
			name: "person failure",
			setup: func(f *fakeEnricher) {
				f.personEr["Bo Kim"] = &research.ProviderError{Provider: "fake", StatusCode: 401, Err: errors.New("denied")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			tt.setup(f)
			rows := []model.ContactRow{contact("Ann", "Lee", "Riverside"), contact("Bo", "Kim", "Lakeview")}

			res, err := NewRunner(f, Options{Policy: PolicyAbort}).Run(context.Background(), rows)
			require.Error(t, err)
			assert.Nil(t, res)

			var pe *research.ProviderError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestRun_IsolatePolicy(t *testing.T) {
	f := newFake()
	f.orgErr["Lakeview"] = &research.ProviderError{Provider: "fake", StatusCode: 503, Err: errors.New("unavailable")}
	f.personEr["Ann Lee"] = &research.ProviderError{Provider: "fake", StatusCode: 401, Err: errors.New("denied")}
	rows := []model.ContactRow{
		contact("Ann", "Lee", "Riverside"),
		contact("Bo", "Kim", "Lakeview"),
		contact("Cy", "Park", "Riverside"),
	}

	res, err := NewRunner(f, Options{Policy: PolicyIsolate}).Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Len(t, res.Failures, 2)

	// Ann's person call failed; organization facts still apply.
	assert.Equal(t, model.Unknown, res.Records[0].Background)
	assert.Equal(t, "https://Riverside.example.org", res.Records[0].DistrictWebsite)

	// Lakeview failed; Bo gets default organization facts but his own background.
	assert.Equal(t, model.Unknown, res.Records[1].DistrictWebsite)
	assert.Equal(t, "background of Bo Kim", res.Records[1].Background)
	assert.Nil(t, f.personOrg["Bo Kim"])

	assert.Equal(t, "background of Cy Park", res.Records[2].Background)

	byStage := map[string]Failure{}
	for _, fl := range res.Failures {
		byStage[fl.Stage] = fl
	}
	assert.Equal(t, Failure{Stage: StageOrganization, Organization: "Lakeview", Row: -1, Error: byStage[StageOrganization].Error, Transient: true}, byStage[StageOrganization])
	assert.Equal(t, 0, byStage[StagePerson].Row)
	assert.False(t, byStage[StagePerson].Transient)
}

func TestRun_IsolateStillStopsOnCancel(t *testing.T) {
	f := newFake()
	f.orgErr["Riverside"] = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(f, Options{Policy: PolicyIsolate}).Run(ctx, []model.ContactRow{contact("Ann", "Lee", "Riverside")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{"", PolicyAbort, false},
		{"abort", PolicyAbort, false},
		{"isolate", PolicyIsolate, false},
		{"retry", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
