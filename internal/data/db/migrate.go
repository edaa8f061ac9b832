package db

import (
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

var roleName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// EnsureBadgePolicies enables row-level security on the badge tables for the
// primary role. The primary role may read both tables and may insert its own
// user_badge rows when app.user_id is set on the session; any other write is
// rejected and must go through the privileged role. Postgres only.
func EnsureBadgePolicies(db *gorm.DB, primaryRole string) error {
	if !roleName.MatchString(primaryRole) {
		return fmt.Errorf("invalid primary role name %q", primaryRole)
	}
	stmts := []struct{ name, sql string }{
		{"grant dml", fmt.Sprintf(`GRANT SELECT, INSERT, UPDATE ON course, lesson, enrollment, lesson_progress, course_badge, user_badge TO %s;`, primaryRole)},
		{"enable course_badge rls", `ALTER TABLE course_badge ENABLE ROW LEVEL SECURITY;`},
		{"enable user_badge rls", `ALTER TABLE user_badge ENABLE ROW LEVEL SECURITY;`},
		{"drop course_badge read", `DROP POLICY IF EXISTS course_badge_read ON course_badge;`},
		{"course_badge read", fmt.Sprintf(`CREATE POLICY course_badge_read ON course_badge FOR SELECT TO %s USING (true);`, primaryRole)},
		{"drop user_badge read", `DROP POLICY IF EXISTS user_badge_read ON user_badge;`},
		{"user_badge read", fmt.Sprintf(`CREATE POLICY user_badge_read ON user_badge FOR SELECT TO %s USING (true);`, primaryRole)},
		{"drop user_badge self insert", `DROP POLICY IF EXISTS user_badge_self_insert ON user_badge;`},
		{"user_badge self insert", fmt.Sprintf(`
			CREATE POLICY user_badge_self_insert ON user_badge FOR INSERT TO %s
			WITH CHECK (user_id::text = current_setting('app.user_id', true));`, primaryRole)},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return nil
}

// AutoMigrateAll runs migrations on the privileged handle, which owns the schema.
func (s *PostgresService) AutoMigrateAll(enablePolicies bool, primaryRole string) error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.privileged); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if !enablePolicies {
		return nil
	}
	if !s.SplitRoles() {
		s.log.Warn("row-level policies requested without a separate privileged role; skipping")
		return nil
	}
	if err := EnsureBadgePolicies(s.privileged, primaryRole); err != nil {
		s.log.Error("Badge policy migration failed", "error", err)
		return err
	}
	return nil
}
