package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"eventhorizon/internal/domain"
)

// pairKey identifies a (user, event) registration in the fakes.
type pairKey struct {
	userID  string
	eventID string
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID    map[string]*domain.Event
	nextID  int
	loc     *time.Location
	listErr error // if set, List and ListStartingBetween return this error

	// window bounds of the last ListStartingBetween call
	fromArg time.Time
	toArg   time.Time
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:   make(map[string]*domain.Event),
		nextID: 1,
		loc:    time.Local,
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) List(ctx context.Context, opts domain.ListEventsOptions) ([]*domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if opts.Location != "" && e.Location != opts.Location {
			continue
		}
		out = append(out, e)
	}
	switch opts.SortBy {
	case domain.SortDate:
		sort.Slice(out, func(i, j int) bool {
			return out[i].StartsAt(f.loc).Before(out[j].StartsAt(f.loc))
		})
	case domain.SortCreationTime:
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	e, ok := f.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Details != nil {
		e.Details = *upd.Details
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.EventDate != nil {
		e.EventDate = *upd.EventDate
	}
	if upd.EventTime != nil {
		e.EventTime = *upd.EventTime
	}
	return e, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	f.fromArg, f.toArg = from, to
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		start := e.StartsAt(f.loc)
		if !start.Before(from) && !start.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeRegRepo is an in-memory RegistrationRepository for tests.
type fakeRegRepo struct {
	rows    map[pairKey]*domain.Registration
	users   map[string]*domain.User
	events  map[string]*domain.Event // event rows ListByUserID joins against
	listErr error                    // if set, ListUnreminded returns this error
	markErr error                    // if set, MarkReminderSent returns this error
}

func newFakeRegRepo() *fakeRegRepo {
	return &fakeRegRepo{
		rows:   make(map[pairKey]*domain.Registration),
		users:  make(map[string]*domain.User),
		events: make(map[string]*domain.Event),
	}
}

func (f *fakeRegRepo) addUser(u *domain.User) {
	f.users[u.ID] = u
}

func (f *fakeRegRepo) Create(ctx context.Context, reg *domain.Registration) error {
	f.rows[pairKey{reg.UserID, reg.EventID}] = reg
	return nil
}

func (f *fakeRegRepo) Get(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	if reg, ok := f.rows[pairKey{userID, eventID}]; ok {
		return reg, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegRepo) Delete(ctx context.Context, userID, eventID string) error {
	key := pairKey{userID, eventID}
	if _, ok := f.rows[key]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rows, key)
	return nil
}

func (f *fakeRegRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	out := make([]*domain.RegistrationWithEvent, 0)
	for key, reg := range f.rows {
		if key.userID != userID {
			continue
		}
		ev, ok := f.events[key.eventID]
		if !ok {
			continue
		}
		out = append(out, &domain.RegistrationWithEvent{Registration: reg, Event: ev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event.ID < out[j].Event.ID })
	return out, nil
}

func (f *fakeRegRepo) ListUnreminded(ctx context.Context, eventID string) ([]*domain.RegistrationWithUser, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.RegistrationWithUser, 0)
	for key, reg := range f.rows {
		if key.eventID != eventID || reg.ReminderSent {
			continue
		}
		u, ok := f.users[key.userID]
		if !ok {
			u = &domain.User{ID: key.userID, Username: key.userID, Email: key.userID + "@example.com"}
		}
		out = append(out, &domain.RegistrationWithUser{Registration: reg, User: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

func (f *fakeRegRepo) MarkReminderSent(ctx context.Context, userID, eventID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	reg, ok := f.rows[pairKey{userID, eventID}]
	if !ok || reg.ReminderSent {
		return domain.ErrNotFound
	}
	reg.ReminderSent = true
	return nil
}

// fakeNotifier records notify calls and can fail for selected pairs.
type fakeNotifier struct {
	calls    []pairKey
	failFor  map[pairKey]error
	onNotify func(event *domain.Event, user *domain.User)
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[pairKey]error)}
}

func (f *fakeNotifier) NotifyEventReminder(ctx context.Context, event *domain.Event, user *domain.User) error {
	key := pairKey{user.ID, event.ID}
	f.calls = append(f.calls, key)
	if f.onNotify != nil {
		f.onNotify(event, user)
	}
	if err, ok := f.failFor[key]; ok {
		return err
	}
	return nil
}

func (f *fakeNotifier) callCount(userID, eventID string) int {
	n := 0
	for _, c := range f.calls {
		if c == (pairKey{userID, eventID}) {
			n++
		}
	}
	return n
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

// eventStartingAt builds an event whose civil date and time match t in the
// local zone, so StartsAt(time.Local) returns t (truncated to seconds).
func eventStartingAt(id, title string, t time.Time) *domain.Event {
	t = t.In(time.Local)
	return &domain.Event{
		ID:        id,
		Title:     title,
		Location:  "Main Hall",
		EventDate: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		EventTime: time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC),
		CreatedAt: time.Now(),
		CreatorID: "creator-1",
	}
}
