// Package gormstore persists grants and audit records in PostgreSQL.
//
// The grant table is the durable source of truth for direct grants;
// change propagation to other processes works by polling, so peers
// converge within one poll interval of a write.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// DefaultPollInterval is how often Watch looks for grant changes
// unless WithPollInterval overrides it.
const DefaultPollInterval = 2 * time.Second

const watchBuffer = 64

var _ types.GrantPersister = (*Store)(nil)

// Store implements types.GrantPersister on a PostgreSQL database.
type Store struct {
	db   *gorm.DB
	log  logr.Logger
	poll time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for background poll failures
func WithLogger(log logr.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithPollInterval sets how often Watch polls for changes
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.poll = d
		}
	}
}

// Open connects to PostgreSQL and migrates the grant and audit tables
func Open(dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, e := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if e != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", e)
	}

	sqlDB, e := db.DB()
	if e != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", e)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e := sqlDB.PingContext(ctx); e != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", e)
	}

	if e := db.AutoMigrate(&grantModel{}, &auditModel{}); e != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate authz tables: %w", e)
	}

	s := &Store{
		db:   db,
		log:  logr.Discard(),
		poll: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database connection
func (s *Store) Close() error {
	sqlDB, e := s.db.DB()
	if e != nil {
		return e
	}
	return sqlDB.Close()
}

// Upsert inserts or replaces the grant for its user-resource pair
func (s *Store) Upsert(g types.Grant) error {
	row := grantRow(g)
	e := s.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "resource_type"}, {Name: "resource_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"permissions", "granted_by", "granted_at"}),
		}).
		Create(&row).
		Error
	if e != nil {
		return fmt.Errorf("upsert grant: %w", e)
	}
	return nil
}

// Remove deletes the grant of a user on a resource. Absent grants are a no-op.
func (s *Store) Remove(userID string, res types.Resource) error {
	e := s.db.
		Where("user_id = ? AND resource_type = ? AND resource_id = ?",
			userID, string(res.Type), res.ID).
		Delete(&grantModel{}).
		Error
	if e != nil {
		return fmt.Errorf("remove grant: %w", e)
	}
	return nil
}

// List returns all persisted grants
func (s *Store) List() ([]types.Grant, error) {
	var rows []grantModel
	if e := s.db.Order("granted_at ASC").Find(&rows).Error; e != nil {
		return nil, fmt.Errorf("list grants: %w", e)
	}

	grants := make([]types.Grant, 0, len(rows))
	for _, row := range rows {
		g, e := row.toGrant()
		if e != nil {
			return nil, e
		}
		grants = append(grants, g)
	}
	return grants, nil
}

// Watch emits grant changes discovered by polling the grant table.
// The channel closes when ctx is canceled. Changes made through this
// Store are reported too; appliers must tolerate seeing their own writes.
func (s *Store) Watch(ctx context.Context) (<-chan types.GrantChange, error) {
	grants, e := s.List()
	if e != nil {
		return nil, fmt.Errorf("prime grant watch: %w", e)
	}

	known := make(map[grantKey]types.Grant, len(grants))
	for _, g := range grants {
		known[keyOf(g)] = g
	}

	changes := make(chan types.GrantChange, watchBuffer)
	go s.pollChanges(ctx, known, changes)
	return changes, nil
}

type grantKey struct {
	user     string
	resource types.Resource
}

func keyOf(g types.Grant) grantKey {
	return grantKey{user: g.UserID, resource: g.Resource}
}

func (s *Store) pollChanges(ctx context.Context, known map[grantKey]types.Grant, changes chan<- types.GrantChange) {
	defer close(changes)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		grants, e := s.List()
		if e != nil {
			s.log.Error(e, "polling grants")
			continue
		}

		current := make(map[grantKey]types.Grant, len(grants))
		for _, g := range grants {
			current[keyOf(g)] = g
		}

		for k, g := range current {
			prev, ok := known[k]
			switch {
			case !ok:
				if !emit(ctx, changes, types.GrantChange{Grant: g, Method: types.PersistInsert}) {
					return
				}
			case !sameGrant(prev, g):
				if !emit(ctx, changes, types.GrantChange{Grant: g, Method: types.PersistUpdate}) {
					return
				}
			}
		}
		for k, g := range known {
			if _, ok := current[k]; !ok {
				if !emit(ctx, changes, types.GrantChange{Grant: g, Method: types.PersistDelete}) {
					return
				}
			}
		}

		known = current
	}
}

func emit(ctx context.Context, changes chan<- types.GrantChange, change types.GrantChange) bool {
	select {
	case changes <- change:
		return true
	case <-ctx.Done():
		return false
	}
}

func sameGrant(a, b types.Grant) bool {
	return a.Permissions == b.Permissions &&
		a.GrantedBy == b.GrantedBy &&
		a.GrantedAt.Equal(b.GrantedAt)
}

type grantModel struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       string    `gorm:"column:user_id;uniqueIndex:idx_authz_grants_target"`
	ResourceType string    `gorm:"column:resource_type;uniqueIndex:idx_authz_grants_target"`
	ResourceID   string    `gorm:"column:resource_id;uniqueIndex:idx_authz_grants_target"`
	Permissions  string    `gorm:"column:permissions"`
	GrantedBy    string    `gorm:"column:granted_by"`
	GrantedAt    time.Time `gorm:"column:granted_at"`
}

func (grantModel) TableName() string {
	return "authz_grants"
}

func grantRow(g types.Grant) grantModel {
	return grantModel{
		UserID:       g.UserID,
		ResourceType: string(g.Resource.Type),
		ResourceID:   g.Resource.ID,
		Permissions:  g.Permissions.String(),
		GrantedBy:    g.GrantedBy,
		GrantedAt:    g.GrantedAt.UTC(),
	}
}

func (m grantModel) toGrant() (types.Grant, error) {
	perms, e := types.ParsePermissions(strings.Split(m.Permissions, "|")...)
	if e != nil {
		return types.Grant{}, fmt.Errorf("grant row %d: %w", m.ID, e)
	}
	return types.Grant{
		UserID:      m.UserID,
		Resource:    types.NewResource(types.ResourceType(m.ResourceType), m.ResourceID),
		Permissions: perms,
		GrantedBy:   m.GrantedBy,
		GrantedAt:   m.GrantedAt.UTC(),
	}, nil
}
