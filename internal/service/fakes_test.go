package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pugpool/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory repository stand-ins. They lock internally because player
// upserts run outside the admission mutex and the concurrency tests hammer
// Join from many goroutines.

func uniqueViolation() error {
	return fmt.Errorf("duplicate key: %w", &pgconn.PgError{Code: "23505"})
}

type fakePlayerRepo struct {
	mu     sync.Mutex
	nextID int64
	byExt  map[string]*domain.Player
	byID   map[int64]*domain.Player
	fail   error
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{
		byExt: make(map[string]*domain.Player),
		byID:  make(map[int64]*domain.Player),
	}
}

func (f *fakePlayerRepo) GetOrCreate(ctx context.Context, ref domain.PlayerRef) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if p, ok := f.byExt[ref.ExternalID]; ok {
		p.Handle = ref.Handle
		p.DisplayName = ref.DisplayName
		p.UpdatedAt = time.Now()
		cp := *p
		return &cp, nil
	}
	f.nextID++
	p := &domain.Player{
		ID:          f.nextID,
		ExternalID:  ref.ExternalID,
		Handle:      ref.Handle,
		DisplayName: ref.DisplayName,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.byExt[ref.ExternalID] = p
	f.byID[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakePlayerRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	p, ok := f.byExt[externalID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlayerRepo) List(ctx context.Context) ([]domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	players := make([]domain.Player, 0, len(f.byExt))
	for _, p := range f.byExt {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].DisplayName != players[j].DisplayName {
			return players[i].DisplayName < players[j].DisplayName
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

type fakeMatchRepo struct {
	mu          sync.Mutex
	players     *fakePlayerRepo
	nextID      int64
	matches     map[int64]*domain.Match
	members     map[int64][]domain.PoolMember
	assignments []domain.TeamAssignment
	listErr     error
}

func newFakeMatchRepo(players *fakePlayerRepo) *fakeMatchRepo {
	return &fakeMatchRepo{
		players: players,
		matches: make(map[int64]*domain.Match),
		members: make(map[int64][]domain.PoolMember),
	}
}

func (f *fakeMatchRepo) Create(ctx context.Context) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.Status == domain.StatusOpen {
			return nil, uniqueViolation()
		}
	}
	f.nextID++
	m := &domain.Match{
		ID:        f.nextID,
		Status:    domain.StatusOpen,
		CreatedAt: time.Now(),
	}
	f.matches[m.ID] = m
	cp := *m
	return &cp, nil
}

func (f *fakeMatchRepo) GetOpen(ctx context.Context) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.Status == domain.StatusOpen {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMatchRepo) Close(ctx context.Context, matchID int64) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok || m.Status != domain.StatusOpen {
		return nil, nil
	}
	now := time.Now()
	m.Status = domain.StatusClosed
	m.ClosedAt = &now
	cp := *m
	return &cp, nil
}

func (f *fakeMatchRepo) AddMember(ctx context.Context, matchID, playerID int64) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[matchID] {
		if m.PlayerID == playerID {
			return time.Time{}, uniqueViolation()
		}
	}

	f.players.mu.Lock()
	p := f.players.byID[playerID]
	f.players.mu.Unlock()

	member := domain.PoolMember{
		PlayerID: playerID,
		JoinedAt: time.Now(),
	}
	if p != nil {
		member.ExternalID = p.ExternalID
		member.Handle = p.Handle
		member.DisplayName = p.DisplayName
	}
	f.members[matchID] = append(f.members[matchID], member)
	return member.JoinedAt, nil
}

func (f *fakeMatchRepo) RemoveMember(ctx context.Context, matchID, playerID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.members[matchID]
	for i, m := range members {
		if m.PlayerID == playerID {
			f.members[matchID] = append(members[:i:i], members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMatchRepo) ListMembers(ctx context.Context, matchID int64) ([]domain.PoolMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	members := make([]domain.PoolMember, len(f.members[matchID]))
	copy(members, f.members[matchID])
	return members, nil
}

func (f *fakeMatchRepo) CountMembers(ctx context.Context, matchID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.members[matchID]), nil
}

func (f *fakeMatchRepo) SetAnnouncementRef(ctx context.Context, matchID int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.matches[matchID]; ok {
		m.AnnouncementRef = ref
	}
	return nil
}

func (f *fakeMatchRepo) SaveAssignment(ctx context.Context, assignment *domain.TeamAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignment.CreatedAt = time.Now()
	if m, ok := f.matches[assignment.MatchID]; ok {
		balanced := assignment.CreatedAt
		m.BalancedAt = &balanced
	}
	f.assignments = append(f.assignments, *assignment)
	return nil
}

func (f *fakeMatchRepo) savedAssignments() []domain.TeamAssignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TeamAssignment, len(f.assignments))
	copy(out, f.assignments)
	return out
}

type fakeCooldownRepo struct {
	mu   sync.Mutex
	rows map[int64]*domain.Cooldown
	fail error
}

func newFakeCooldownRepo() *fakeCooldownRepo {
	return &fakeCooldownRepo{rows: make(map[int64]*domain.Cooldown)}
}

func (f *fakeCooldownRepo) Upsert(ctx context.Context, playerID int64, expiresAt time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.rows[playerID] = &domain.Cooldown{
		PlayerID:  playerID,
		ExpiresAt: expiresAt,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeCooldownRepo) Active(ctx context.Context, playerID int64, now time.Time) (*domain.Cooldown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	row, ok := f.rows[playerID]
	if !ok || !row.ExpiresAt.After(now) {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeCooldownRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	var deleted int64
	for id, row := range f.rows {
		if !row.ExpiresAt.After(now) {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// expire rewinds a player's cooldown so it reads as already elapsed
func (f *fakeCooldownRepo) expire(playerID int64, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[playerID]; ok {
		row.ExpiresAt = now
	}
}

type fakeSkillProvider struct {
	mu     sync.Mutex
	skills map[int64]float64
	fail   error
}

func newFakeSkillProvider() *fakeSkillProvider {
	return &fakeSkillProvider{skills: make(map[int64]float64)}
}

func (f *fakeSkillProvider) AverageSkill(ctx context.Context, playerID int64) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, false, f.fail
	}
	skill, ok := f.skills[playerID]
	if !ok {
		return 0, false, nil
	}
	return skill, true, nil
}

func (f *fakeSkillProvider) set(playerID int64, skill float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skills[playerID] = skill
}

func (f *fakeSkillProvider) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

type fakeStatsRepo struct {
	mu      sync.Mutex
	players *fakePlayerRepo
	nextID  int64
	lines   map[int64][]domain.StatLine
	fail    error
}

func newFakeStatsRepo(players *fakePlayerRepo) *fakeStatsRepo {
	return &fakeStatsRepo{
		players: players,
		lines:   make(map[int64][]domain.StatLine),
	}
}

func (f *fakeStatsRepo) InsertLine(ctx context.Context, line *domain.StatLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.nextID++
	line.ID = f.nextID
	line.RecordedAt = time.Now()
	f.lines[line.PlayerID] = append(f.lines[line.PlayerID], *line)
	return nil
}

func (f *fakeStatsRepo) aggregatesLocked(playerID int64) *domain.StatAggregates {
	lines := f.lines[playerID]
	if len(lines) == 0 {
		return nil
	}
	agg := &domain.StatAggregates{PlayerID: playerID, Matches: len(lines)}
	for _, l := range lines {
		agg.AvgKills += float64(l.Kills)
		agg.AvgDeaths += float64(l.Deaths)
		agg.AvgAssists += float64(l.Assists)
		agg.AvgADR += l.ADR
	}
	n := float64(len(lines))
	agg.AvgKills /= n
	agg.AvgDeaths /= n
	agg.AvgAssists /= n
	agg.AvgADR /= n

	f.players.mu.Lock()
	if p := f.players.byID[playerID]; p != nil {
		agg.ExternalID = p.ExternalID
		agg.DisplayName = p.DisplayName
	}
	f.players.mu.Unlock()
	return agg
}

func (f *fakeStatsRepo) Aggregates(ctx context.Context, playerID int64) (*domain.StatAggregates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return f.aggregatesLocked(playerID), nil
}

func (f *fakeStatsRepo) RecentLines(ctx context.Context, playerID int64, limit int) ([]domain.StatLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	lines := make([]domain.StatLine, len(f.lines[playerID]))
	copy(lines, f.lines[playerID])
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].RecordedAt.Equal(lines[j].RecordedAt) {
			return lines[i].RecordedAt.After(lines[j].RecordedAt)
		}
		return lines[i].ID > lines[j].ID
	})
	if len(lines) > limit {
		lines = lines[:limit]
	}
	return lines, nil
}

func (f *fakeStatsRepo) LeaderboardAggregates(ctx context.Context) ([]domain.StatAggregates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	ids := make([]int64, 0, len(f.lines))
	for id := range f.lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	aggs := make([]domain.StatAggregates, 0, len(ids))
	for _, id := range ids {
		if agg := f.aggregatesLocked(id); agg != nil {
			aggs = append(aggs, *agg)
		}
	}
	return aggs, nil
}

func (f *fakeStatsRepo) AverageSkill(ctx context.Context, playerID int64) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, false, f.fail
	}
	lines := f.lines[playerID]
	if len(lines) == 0 {
		return 0, false, nil
	}
	var sum float64
	for _, l := range lines {
		sum += l.ADR
	}
	return sum / float64(len(lines)), true, nil
}
