// Package memstore is an in-memory store.Store for tests and local development.
// Transactions run against a copy of the data that replaces the original on
// commit, so a failing transaction leaves no trace.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
)

type memberKey struct {
	scope uuid.UUID
	user  uuid.UUID
}

type state struct {
	users         map[uuid.UUID]*models.User
	orgs          map[uuid.UUID]*models.Organization
	orgMembers    map[memberKey]*models.OrganizationMember
	confs         map[uuid.UUID]*models.Conference
	confMembers   map[memberKey]*models.ConferenceMember
	tenants       map[uuid.UUID]*models.Tenant
	tenantMembers map[memberKey]*models.Membership
	invites       map[string]*models.Invite
	last          time.Time
}

func newState() *state {
	return &state{
		users:         make(map[uuid.UUID]*models.User),
		orgs:          make(map[uuid.UUID]*models.Organization),
		orgMembers:    make(map[memberKey]*models.OrganizationMember),
		confs:         make(map[uuid.UUID]*models.Conference),
		confMembers:   make(map[memberKey]*models.ConferenceMember),
		tenants:       make(map[uuid.UUID]*models.Tenant),
		tenantMembers: make(map[memberKey]*models.Membership),
		invites:       make(map[string]*models.Invite),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.users {
		c.users[k] = copyUser(v)
	}
	for k, v := range st.orgs {
		c.orgs[k] = copyOrg(v)
	}
	for k, v := range st.orgMembers {
		m := *v
		c.orgMembers[k] = &m
	}
	for k, v := range st.confs {
		cf := *v
		c.confs[k] = &cf
	}
	for k, v := range st.confMembers {
		m := *v
		c.confMembers[k] = &m
	}
	for k, v := range st.tenants {
		t := *v
		c.tenants[k] = &t
	}
	for k, v := range st.tenantMembers {
		m := *v
		c.tenantMembers[k] = &m
	}
	for k, v := range st.invites {
		inv := *v
		c.invites[k] = &inv
	}
	c.last = st.last
	return c
}

// tick returns a strictly increasing timestamp so creation order is stable.
func (st *state) tick() time.Time {
	t := time.Now().UTC()
	if !t.After(st.last) {
		t = st.last.Add(time.Microsecond)
	}
	st.last = t
	return t
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Organizations = append([]models.OrgMembership{}, u.Organizations...)
	c.Conferences = append([]models.ConfMembership{}, u.Conferences...)
	c.Memberships = append([]models.TenantMembership{}, u.Memberships...)
	return &c
}

func copyOrg(o *models.Organization) *models.Organization {
	c := *o
	c.ConferenceIDs = append([]uuid.UUID{}, o.ConferenceIDs...)
	return &c
}

// Store is the in-memory store.Store.
type Store struct {
	*view
	mu           sync.Mutex
	st           *state
	rolesChanged store.RolesChangedFunc
	// FailOn, when set, is consulted before every write; a non-nil return aborts it.
	FailOn func(op string) error
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store. rolesChanged may be nil.
func New(rolesChanged store.RolesChangedFunc) *Store {
	s := &Store{st: newState(), rolesChanged: rolesChanged}
	s.view = &view{
		state: func() *state { return s.st },
		lock: func() func() {
			s.mu.Lock()
			return s.mu.Unlock
		},
		touched: s.publish,
		fail:    s.failWrite,
	}
	return s
}

// WithTx runs fn against a private copy of the data and publishes it only if fn succeeds.
// fn must use q; calling back into s would block.
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	touched, err := s.apply(fn)
	if err != nil {
		return err
	}
	s.publish(ctx, touched)
	return nil
}

// apply holds the lock for the whole transaction; a panic in fn leaves s.st untouched.
func (s *Store) apply(fn func(q store.Queries) error) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	var touched []uuid.UUID
	tx := &view{
		state:   func() *state { return working },
		lock:    func() func() { return func() {} },
		touched: func(_ context.Context, ids []uuid.UUID) { touched = append(touched, ids...) },
		fail:    s.failWrite,
	}
	if err := fn(tx); err != nil {
		return nil, err
	}
	s.st = working
	return touched, nil
}

func (s *Store) publish(ctx context.Context, ids []uuid.UUID) {
	if s.rolesChanged != nil && len(ids) > 0 {
		s.rolesChanged(ctx, ids)
	}
}

func (s *Store) failWrite(op string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op)
}

// view implements store.Queries over one state.
type view struct {
	state   func() *state
	lock    func() func()
	touched func(ctx context.Context, ids []uuid.UUID)
	fail    func(op string) error
}

func (v *view) CreateUser(_ context.Context, u *models.User) error {
	defer v.lock()()
	if err := v.fail("CreateUser"); err != nil {
		return err
	}
	st := v.state()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range st.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = st.tick()
	u.UpdatedAt = u.CreatedAt
	u.Organizations = []models.OrgMembership{}
	u.Conferences = []models.ConfMembership{}
	u.Memberships = []models.TenantMembership{}
	st.users[u.ID] = copyUser(u)
	return nil
}

func (v *view) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	defer v.lock()()
	u, ok := v.state().users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (v *view) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	defer v.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range v.state().users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (v *view) UpdateUserName(_ context.Context, id uuid.UUID, name string) (*models.User, error) {
	defer v.lock()()
	if err := v.fail("UpdateUserName"); err != nil {
		return nil, err
	}
	st := v.state()
	u, ok := st.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	u.Name = name
	u.UpdatedAt = st.tick()
	return copyUser(u), nil
}

func (v *view) UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	unlock := v.lock()
	if err := v.fail("UpdateUserEmail"); err != nil {
		unlock()
		return nil, err
	}
	st := v.state()
	u, ok := st.users[id]
	if !ok {
		unlock()
		return nil, store.ErrUserNotFound
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for otherID, other := range st.users {
		if otherID != id && other.Email == email {
			unlock()
			return nil, store.ErrDuplicate
		}
	}
	u.Email = email
	u.EmailVerified = false
	u.UpdatedAt = st.tick()
	out := copyUser(u)
	unlock()
	v.touched(ctx, []uuid.UUID{id})
	return out, nil
}

func (v *view) RefreshUserRoles(ctx context.Context, userIDs ...uuid.UUID) error {
	unlock := v.lock()
	if err := v.fail("RefreshUserRoles"); err != nil {
		unlock()
		return err
	}
	st := v.state()
	var refreshed []uuid.UUID
	for _, id := range userIDs {
		u, ok := st.users[id]
		if !ok {
			continue
		}
		orgs := make([]*models.OrganizationMember, 0)
		for k, m := range st.orgMembers {
			if k.user == id {
				orgs = append(orgs, m)
			}
		}
		sort.Slice(orgs, func(i, j int) bool { return orgs[i].CreatedAt.Before(orgs[j].CreatedAt) })
		u.Organizations = make([]models.OrgMembership, 0, len(orgs))
		for _, m := range orgs {
			u.Organizations = append(u.Organizations, models.OrgMembership{OrganizationID: m.OrganizationID, Role: m.Role})
		}

		confs := make([]*models.ConferenceMember, 0)
		for k, m := range st.confMembers {
			if k.user == id {
				confs = append(confs, m)
			}
		}
		sort.Slice(confs, func(i, j int) bool { return confs[i].CreatedAt.Before(confs[j].CreatedAt) })
		u.Conferences = make([]models.ConfMembership, 0, len(confs))
		for _, m := range confs {
			u.Conferences = append(u.Conferences, models.ConfMembership{ConferenceID: m.ConferenceID, Role: m.Role})
		}

		tms := make([]*models.Membership, 0)
		for k, m := range st.tenantMembers {
			if k.user == id {
				tms = append(tms, m)
			}
		}
		sort.Slice(tms, func(i, j int) bool { return tms[i].CreatedAt.Before(tms[j].CreatedAt) })
		u.Memberships = make([]models.TenantMembership, 0, len(tms))
		for _, m := range tms {
			u.Memberships = append(u.Memberships, models.TenantMembership{TenantID: m.TenantID, Role: m.Role})
		}
		u.UpdatedAt = st.tick()
		refreshed = append(refreshed, id)
	}
	unlock()
	if len(refreshed) > 0 {
		v.touched(ctx, refreshed)
	}
	return nil
}

func (v *view) CreateOrganization(_ context.Context, o *models.Organization) error {
	defer v.lock()()
	if err := v.fail("CreateOrganization"); err != nil {
		return err
	}
	st := v.state()
	for _, existing := range st.orgs {
		if existing.Slug == o.Slug {
			return store.ErrDuplicate
		}
	}
	if o.Plan == "" {
		o.Plan = models.PlanFree
	}
	o.ID = uuid.New()
	o.ConferenceIDs = []uuid.UUID{}
	o.CreatedAt = st.tick()
	o.UpdatedAt = o.CreatedAt
	st.orgs[o.ID] = copyOrg(o)
	return nil
}

func (v *view) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	defer v.lock()()
	o, ok := v.state().orgs[id]
	if !ok {
		return nil, store.ErrOrganizationNotFound
	}
	return copyOrg(o), nil
}

func (v *view) GetOrganizationBySlug(_ context.Context, slug string) (*models.Organization, error) {
	defer v.lock()()
	for _, o := range v.state().orgs {
		if o.Slug == slug {
			return copyOrg(o), nil
		}
	}
	return nil, store.ErrOrganizationNotFound
}

func (v *view) UpdateOrganization(_ context.Context, o *models.Organization) error {
	defer v.lock()()
	if err := v.fail("UpdateOrganization"); err != nil {
		return err
	}
	st := v.state()
	cur, ok := st.orgs[o.ID]
	if !ok {
		return store.ErrOrganizationNotFound
	}
	for id, existing := range st.orgs {
		if id != o.ID && existing.Slug == o.Slug {
			return store.ErrDuplicate
		}
	}
	cur.Name, cur.Slug, cur.Description, cur.Website = o.Name, o.Slug, o.Description, o.Website
	cur.Logo, cur.Plan, cur.IsPublic = o.Logo, o.Plan, o.IsPublic
	cur.UpdatedAt = st.tick()
	o.UpdatedAt = cur.UpdatedAt
	return nil
}

// DeleteOrganization removes the organization with everything that references it.
func (v *view) DeleteOrganization(_ context.Context, id uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("DeleteOrganization"); err != nil {
		return err
	}
	st := v.state()
	if _, ok := st.orgs[id]; !ok {
		return store.ErrOrganizationNotFound
	}
	for cid, c := range st.confs {
		if c.OrganizationID == id {
			st.dropConference(cid)
		}
	}
	for k := range st.orgMembers {
		if k.scope == id {
			delete(st.orgMembers, k)
		}
	}
	for tok, inv := range st.invites {
		if inv.OrganizationID != nil && *inv.OrganizationID == id {
			delete(st.invites, tok)
		}
	}
	delete(st.orgs, id)
	return nil
}

func (st *state) dropConference(id uuid.UUID) {
	for k := range st.confMembers {
		if k.scope == id {
			delete(st.confMembers, k)
		}
	}
	for tok, inv := range st.invites {
		if inv.ConferenceID != nil && *inv.ConferenceID == id {
			delete(st.invites, tok)
		}
	}
	delete(st.confs, id)
}

func (v *view) ListOrganizationsForUser(_ context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	defer v.lock()()
	st := v.state()
	var list []*models.Organization
	for k := range st.orgMembers {
		if k.user == userID {
			if o, ok := st.orgs[k.scope]; ok {
				list = append(list, copyOrg(o))
			}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (v *view) AddOrganizationConference(_ context.Context, orgID, confID uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("AddOrganizationConference"); err != nil {
		return err
	}
	st := v.state()
	o, ok := st.orgs[orgID]
	if !ok {
		return nil
	}
	for _, id := range o.ConferenceIDs {
		if id == confID {
			return nil
		}
	}
	o.ConferenceIDs = append(o.ConferenceIDs, confID)
	o.UpdatedAt = st.tick()
	return nil
}

func (v *view) RemoveOrganizationConference(_ context.Context, orgID, confID uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("RemoveOrganizationConference"); err != nil {
		return err
	}
	st := v.state()
	o, ok := st.orgs[orgID]
	if !ok {
		return nil
	}
	kept := o.ConferenceIDs[:0]
	for _, id := range o.ConferenceIDs {
		if id != confID {
			kept = append(kept, id)
		}
	}
	o.ConferenceIDs = kept
	o.UpdatedAt = st.tick()
	return nil
}

func (v *view) AddOrganizationMember(_ context.Context, orgID, userID uuid.UUID, role models.OrgRole) (bool, error) {
	defer v.lock()()
	if err := v.fail("AddOrganizationMember"); err != nil {
		return false, err
	}
	st := v.state()
	k := memberKey{orgID, userID}
	if _, ok := st.orgMembers[k]; ok {
		return false, nil
	}
	st.orgMembers[k] = &models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: role, CreatedAt: st.tick()}
	return true, nil
}

func (v *view) GetOrganizationMember(_ context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	defer v.lock()()
	m, ok := v.state().orgMembers[memberKey{orgID, userID}]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}
	c := *m
	return &c, nil
}

func (v *view) ListOrganizationMembers(_ context.Context, orgID uuid.UUID) ([]models.Member, error) {
	defer v.lock()()
	st := v.state()
	var list []models.Member
	for k, m := range st.orgMembers {
		if k.scope == orgID {
			list = append(list, st.member(m.UserID, string(m.Role), m.CreatedAt))
		}
	}
	sortMembers(list)
	return list, nil
}

func (st *state) member(userID uuid.UUID, role string, added time.Time) models.Member {
	m := models.Member{UserID: userID, Role: role, AddedAt: added}
	if u, ok := st.users[userID]; ok {
		m.Email, m.Name = u.Email, u.Name
	}
	return m
}

func sortMembers(list []models.Member) {
	sort.Slice(list, func(i, j int) bool { return list[i].AddedAt.Before(list[j].AddedAt) })
}

func (v *view) ListOrganizationMemberIDs(_ context.Context, orgID uuid.UUID, role models.OrgRole) ([]uuid.UUID, error) {
	defer v.lock()()
	var ms []*models.OrganizationMember
	for k, m := range v.state().orgMembers {
		if k.scope == orgID && m.Role == role {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].CreatedAt.Before(ms[j].CreatedAt) })
	ids := make([]uuid.UUID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (v *view) RemoveOrganizationMember(_ context.Context, orgID, userID uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("RemoveOrganizationMember"); err != nil {
		return err
	}
	st := v.state()
	k := memberKey{orgID, userID}
	if _, ok := st.orgMembers[k]; !ok {
		return store.ErrMembershipNotFound
	}
	delete(st.orgMembers, k)
	return nil
}

func (v *view) DeleteOrganizationMembers(_ context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	defer v.lock()()
	if err := v.fail("DeleteOrganizationMembers"); err != nil {
		return nil, err
	}
	st := v.state()
	var ids []uuid.UUID
	for k := range st.orgMembers {
		if k.scope == orgID {
			ids = append(ids, k.user)
			delete(st.orgMembers, k)
		}
	}
	return ids, nil
}

func (v *view) CreateConference(_ context.Context, c *models.Conference) error {
	defer v.lock()()
	if err := v.fail("CreateConference"); err != nil {
		return err
	}
	st := v.state()
	if st.findConference(c.OrganizationID, c.Name, c.Slug, uuid.Nil) != nil {
		return store.ErrDuplicate
	}
	c.ID = uuid.New()
	c.CreatedAt = st.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	st.confs[c.ID] = &cp
	return nil
}

func (st *state) findConference(orgID uuid.UUID, name, slug string, except uuid.UUID) *models.Conference {
	for id, c := range st.confs {
		if id == except || c.OrganizationID != orgID {
			continue
		}
		if c.Name == name || c.Slug == slug {
			return c
		}
	}
	return nil
}

func (v *view) GetConferenceByID(_ context.Context, id uuid.UUID) (*models.Conference, error) {
	defer v.lock()()
	c, ok := v.state().confs[id]
	if !ok {
		return nil, store.ErrConferenceNotFound
	}
	cp := *c
	return &cp, nil
}

func (v *view) FindConference(_ context.Context, orgID uuid.UUID, name, slug string) (*models.Conference, error) {
	defer v.lock()()
	c := v.state().findConference(orgID, name, slug, uuid.Nil)
	if c == nil {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (v *view) ListConferences(_ context.Context, orgID uuid.UUID) ([]*models.Conference, error) {
	defer v.lock()()
	var list []*models.Conference
	for _, c := range v.state().confs {
		if c.OrganizationID == orgID {
			cp := *c
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (v *view) UpdateConference(_ context.Context, c *models.Conference) error {
	defer v.lock()()
	if err := v.fail("UpdateConference"); err != nil {
		return err
	}
	st := v.state()
	cur, ok := st.confs[c.ID]
	if !ok {
		return store.ErrConferenceNotFound
	}
	if st.findConference(cur.OrganizationID, c.Name, c.Slug, c.ID) != nil {
		return store.ErrDuplicate
	}
	cur.Name, cur.Slug, cur.Description = c.Name, c.Slug, c.Description
	cur.CFPOpenDate, cur.CFPCloseDate = c.CFPOpenDate, c.CFPCloseDate
	cur.UpdatedAt = st.tick()
	c.UpdatedAt = cur.UpdatedAt
	return nil
}

func (v *view) DeleteConference(_ context.Context, id uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("DeleteConference"); err != nil {
		return err
	}
	st := v.state()
	if _, ok := st.confs[id]; !ok {
		return store.ErrConferenceNotFound
	}
	st.dropConference(id)
	return nil
}

func (v *view) AddConferenceMember(_ context.Context, confID, userID uuid.UUID, role models.ConfRole) (bool, error) {
	defer v.lock()()
	if err := v.fail("AddConferenceMember"); err != nil {
		return false, err
	}
	st := v.state()
	k := memberKey{confID, userID}
	if _, ok := st.confMembers[k]; ok {
		return false, nil
	}
	st.confMembers[k] = &models.ConferenceMember{ConferenceID: confID, UserID: userID, Role: role, CreatedAt: st.tick()}
	return true, nil
}

func (v *view) GetConferenceMember(_ context.Context, confID, userID uuid.UUID) (*models.ConferenceMember, error) {
	defer v.lock()()
	m, ok := v.state().confMembers[memberKey{confID, userID}]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}
	c := *m
	return &c, nil
}

func (v *view) ListConferenceMembers(_ context.Context, confID uuid.UUID) ([]models.Member, error) {
	defer v.lock()()
	st := v.state()
	var list []models.Member
	for k, m := range st.confMembers {
		if k.scope == confID {
			list = append(list, st.member(m.UserID, string(m.Role), m.CreatedAt))
		}
	}
	sortMembers(list)
	return list, nil
}

func (v *view) RemoveConferenceMember(_ context.Context, confID, userID uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("RemoveConferenceMember"); err != nil {
		return err
	}
	st := v.state()
	k := memberKey{confID, userID}
	if _, ok := st.confMembers[k]; !ok {
		return store.ErrMembershipNotFound
	}
	delete(st.confMembers, k)
	return nil
}

func (v *view) RemoveUserConferenceMemberships(_ context.Context, orgID, userID uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("RemoveUserConferenceMemberships"); err != nil {
		return err
	}
	st := v.state()
	for k := range st.confMembers {
		if k.user != userID {
			continue
		}
		if c, ok := st.confs[k.scope]; ok && c.OrganizationID == orgID {
			delete(st.confMembers, k)
		}
	}
	return nil
}

func (v *view) DeleteConferenceMembers(_ context.Context, confID uuid.UUID) ([]uuid.UUID, error) {
	defer v.lock()()
	if err := v.fail("DeleteConferenceMembers"); err != nil {
		return nil, err
	}
	st := v.state()
	var ids []uuid.UUID
	for k := range st.confMembers {
		if k.scope == confID {
			ids = append(ids, k.user)
			delete(st.confMembers, k)
		}
	}
	return ids, nil
}

func (v *view) CreateTenant(_ context.Context, t *models.Tenant) error {
	defer v.lock()()
	if err := v.fail("CreateTenant"); err != nil {
		return err
	}
	st := v.state()
	for _, existing := range st.tenants {
		if existing.Slug == t.Slug {
			return store.ErrDuplicate
		}
	}
	if t.Plan == "" {
		t.Plan = models.PlanFree
	}
	t.ID = uuid.New()
	t.CreatedAt = st.tick()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	st.tenants[t.ID] = &cp
	return nil
}

func (v *view) GetTenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	defer v.lock()()
	t, ok := v.state().tenants[id]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (v *view) CreateMembership(_ context.Context, m *models.Membership) error {
	defer v.lock()()
	if err := v.fail("CreateMembership"); err != nil {
		return err
	}
	st := v.state()
	k := memberKey{m.TenantID, m.UserID}
	if _, ok := st.tenantMembers[k]; ok {
		return store.ErrDuplicate
	}
	m.CreatedAt = st.tick()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	st.tenantMembers[k] = &cp
	return nil
}

func (v *view) GetMembership(_ context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	defer v.lock()()
	m, ok := v.state().tenantMembers[memberKey{tenantID, userID}]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (v *view) ListMemberships(_ context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	defer v.lock()()
	var list []*models.Membership
	for k, m := range v.state().tenantMembers {
		if k.scope == tenantID {
			cp := *m
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (v *view) UpdateMembershipRole(_ context.Context, tenantID, userID uuid.UUID, role models.TenantRole) (*models.Membership, error) {
	defer v.lock()()
	if err := v.fail("UpdateMembershipRole"); err != nil {
		return nil, err
	}
	st := v.state()
	m, ok := st.tenantMembers[memberKey{tenantID, userID}]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}
	m.Role = role
	m.UpdatedAt = st.tick()
	cp := *m
	return &cp, nil
}

func (v *view) DeleteMembership(_ context.Context, tenantID, userID uuid.UUID) error {
	defer v.lock()()
	if err := v.fail("DeleteMembership"); err != nil {
		return err
	}
	st := v.state()
	k := memberKey{tenantID, userID}
	if _, ok := st.tenantMembers[k]; !ok {
		return store.ErrMembershipNotFound
	}
	delete(st.tenantMembers, k)
	return nil
}

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (st *state) findInvite(email string, orgID, confID *uuid.UUID) *models.Invite {
	email = strings.ToLower(email)
	for _, inv := range st.invites {
		if strings.ToLower(inv.Email) == email && sameScope(inv.OrganizationID, orgID) && sameScope(inv.ConferenceID, confID) {
			return inv
		}
	}
	return nil
}

func copyInvite(inv *models.Invite) *models.Invite {
	c := *inv
	if inv.OrganizationID != nil {
		id := *inv.OrganizationID
		c.OrganizationID = &id
	}
	if inv.ConferenceID != nil {
		id := *inv.ConferenceID
		c.ConferenceID = &id
	}
	if inv.OrgRole != nil {
		r := *inv.OrgRole
		c.OrgRole = &r
	}
	if inv.ConfRole != nil {
		r := *inv.ConfRole
		c.ConfRole = &r
	}
	return &c
}

func (v *view) CreateInvite(_ context.Context, inv *models.Invite) error {
	defer v.lock()()
	if err := v.fail("CreateInvite"); err != nil {
		return err
	}
	st := v.state()
	if existing := st.findInvite(inv.Email, inv.OrganizationID, inv.ConferenceID); existing != nil {
		if !existing.Expired(inv.CreatedAt) {
			return store.ErrDuplicate
		}
		delete(st.invites, existing.Token)
	}
	if _, ok := st.invites[inv.Token]; ok {
		return store.ErrDuplicate
	}
	inv.ID = uuid.New()
	st.invites[inv.Token] = copyInvite(inv)
	return nil
}

func (v *view) GetInviteByToken(_ context.Context, token string, now time.Time) (*models.Invite, error) {
	defer v.lock()()
	inv, ok := v.state().invites[token]
	if !ok || inv.Expired(now) {
		return nil, store.ErrInviteNotFound
	}
	return copyInvite(inv), nil
}

func (v *view) FindOutstandingInvite(_ context.Context, email string, orgID, confID *uuid.UUID, now time.Time) (*models.Invite, error) {
	defer v.lock()()
	inv := v.state().findInvite(email, orgID, confID)
	if inv == nil || inv.Expired(now) {
		return nil, nil
	}
	return copyInvite(inv), nil
}

func (v *view) ListInvites(_ context.Context, orgID uuid.UUID, confID *uuid.UUID, now time.Time) ([]*models.Invite, error) {
	defer v.lock()()
	var list []*models.Invite
	for _, inv := range v.state().invites {
		if inv.OrganizationID == nil || *inv.OrganizationID != orgID || inv.Expired(now) {
			continue
		}
		if confID != nil && !sameScope(inv.ConferenceID, confID) {
			continue
		}
		list = append(list, copyInvite(inv))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (v *view) DeleteInvite(_ context.Context, token string) (bool, error) {
	defer v.lock()()
	if err := v.fail("DeleteInvite"); err != nil {
		return false, err
	}
	st := v.state()
	if _, ok := st.invites[token]; !ok {
		return false, nil
	}
	delete(st.invites, token)
	return true, nil
}

func (v *view) DeleteExpiredInvites(_ context.Context, now time.Time) (int64, error) {
	defer v.lock()()
	if err := v.fail("DeleteExpiredInvites"); err != nil {
		return 0, err
	}
	st := v.state()
	var n int64
	for tok, inv := range st.invites {
		if inv.Expired(now) {
			delete(st.invites, tok)
			n++
		}
	}
	return n, nil
}
