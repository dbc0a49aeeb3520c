package migrations

// DialectTemplate is used as the templating control for differing SQL syntax between our supported databases
type DialectTemplate struct {
	Binary            string
	IntegerPrimaryKey string
}

// MigrationSet provides a set of migrations that can be applied to a database.
type MigrationSet []MigrationData

// LatestVersion returns the highest sequence number in the set.
func (s MigrationSet) LatestVersion() uint {
	var latest int64
	for _, m := range s {
		if m.SequenceNumber > latest {
			latest = m.SequenceNumber
		}
	}
	return uint(latest)
}

// MigrationData provides the data for a single migration, including Up and Down SQL.
// Templated values are supported and will be substituted for database-specific values
// before the migrations are applied.
type MigrationData struct {
	SequenceNumber int64
	Name           string
	UpSQL          string
	DownSQL        string
}

// Fixed ids for the rows seeded by the standard groups migration.
const (
	AdministratorPrivilegeSeedID = "privilege:00000000-0000-4000-8000-000000000001"
	ManagerPrivilegeSeedID       = "privilege:00000000-0000-4000-8000-000000000002"
	AdministratorsGroupSeedID    = "group:00000000-0000-4000-8000-000000000001"
	ManagersGroupSeedID          = "group:00000000-0000-4000-8000-000000000002"
	AdministratorsGrantSeedID    = "grant:00000000-0000-4000-8000-000000000001"
	ManagersGrantSeedID          = "grant:00000000-0000-4000-8000-000000000002"
	standardGroupsSeedCreatedAt  = "2023-01-01 00:00:00+00:00"
	standardGroupsSeedETag       = `"seed"`
)

// SaltCIServerMigrations is the set of migrations to set up the database for the salt-ci server.
var SaltCIServerMigrations = MigrationSet{
	{
		SequenceNumber: 1,
		Name:           "create_accounts_and_access_control",
		UpSQL: `CREATE TABLE IF NOT EXISTS accounts
				(
					account_id text NOT NULL PRIMARY KEY,
					account_created_at timestamp without time zone NOT NULL,
					account_updated_at timestamp without time zone NOT NULL,
					account_etag text NOT NULL,
					account_provider_id bigint NOT NULL,
					account_login text NOT NULL,
					account_display_name text NOT NULL,
					account_access_token text NOT NULL,
					account_avatar_url text NOT NULL,
					account_last_login_at timestamp without time zone
				);
				CREATE UNIQUE INDEX IF NOT EXISTS accounts_provider_id_unique_index ON accounts(account_provider_id);
				CREATE INDEX IF NOT EXISTS accounts_login_index ON accounts(account_login);

				CREATE TABLE IF NOT EXISTS access_control_privileges
				(
					access_control_privilege_id text NOT NULL PRIMARY KEY,
					access_control_privilege_created_at timestamp without time zone NOT NULL,
					access_control_privilege_name text NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS access_control_privileges_name_unique_index ON access_control_privileges(access_control_privilege_name);

				CREATE TABLE IF NOT EXISTS access_control_groups
				(
					access_control_group_id text NOT NULL PRIMARY KEY,
					access_control_group_created_at timestamp without time zone NOT NULL,
					access_control_group_updated_at timestamp without time zone NOT NULL,
					access_control_group_etag text NOT NULL,
					access_control_group_name text NOT NULL,
					access_control_group_description text NOT NULL,
					access_control_group_is_internal bool NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS access_control_groups_name_unique_index ON access_control_groups(access_control_group_name);
				CREATE UNIQUE INDEX IF NOT EXISTS access_control_groups_created_at_id_desc_unique_index ON access_control_groups(
					access_control_group_created_at DESC,
					access_control_group_id DESC);

				CREATE TABLE IF NOT EXISTS access_control_group_memberships
				(
					access_control_group_membership_id text NOT NULL PRIMARY KEY,
					access_control_group_membership_created_at timestamp without time zone NOT NULL,
					access_control_group_membership_group_id text NOT NULL REFERENCES access_control_groups (access_control_group_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					access_control_group_membership_account_id text NOT NULL REFERENCES accounts (account_id) ON UPDATE NO ACTION ON DELETE CASCADE
				);
				CREATE UNIQUE INDEX IF NOT EXISTS access_control_group_memberships_unique_index ON access_control_group_memberships(
					access_control_group_membership_group_id,
					access_control_group_membership_account_id);
				CREATE INDEX IF NOT EXISTS access_control_group_memberships_account_id_index ON access_control_group_memberships(access_control_group_membership_account_id);

				CREATE TABLE IF NOT EXISTS access_control_grants
				(
					access_control_grant_id text NOT NULL PRIMARY KEY,
					access_control_grant_created_at timestamp without time zone NOT NULL,
					access_control_grant_privilege_id text NOT NULL REFERENCES access_control_privileges (access_control_privilege_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					access_control_grant_authorized_account_id text REFERENCES accounts (account_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					access_control_grant_authorized_group_id text REFERENCES access_control_groups (access_control_group_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					CHECK ((access_control_grant_authorized_account_id IS NULL) <> (access_control_grant_authorized_group_id IS NULL))
				);
				CREATE UNIQUE INDEX IF NOT EXISTS access_control_grants_account_unique_index ON access_control_grants(
					access_control_grant_privilege_id,
					access_control_grant_authorized_account_id)
				WHERE access_control_grant_authorized_account_id IS NOT NULL;
				CREATE UNIQUE INDEX IF NOT EXISTS access_control_grants_group_unique_index ON access_control_grants(
					access_control_grant_privilege_id,
					access_control_grant_authorized_group_id)
				WHERE access_control_grant_authorized_group_id IS NOT NULL;`,
		DownSQL: `DROP TABLE access_control_grants;
				  DROP TABLE access_control_group_memberships;
				  DROP TABLE access_control_groups;
				  DROP TABLE access_control_privileges;
				  DROP TABLE accounts;`,
	},
	{
		SequenceNumber: 2,
		Name:           "add_account_preferences",
		UpSQL: `ALTER TABLE accounts ADD account_locale text NOT NULL DEFAULT 'en';
				ALTER TABLE accounts ADD account_timezone text NOT NULL DEFAULT 'UTC';
				ALTER TABLE accounts ADD account_hooks_token text NOT NULL DEFAULT '';
				CREATE UNIQUE INDEX IF NOT EXISTS accounts_hooks_token_unique_index ON accounts(account_hooks_token)
				WHERE account_hooks_token <> '';`,
		DownSQL: `DROP INDEX accounts_hooks_token_unique_index;
				  ALTER TABLE accounts DROP COLUMN account_hooks_token;
				  ALTER TABLE accounts DROP COLUMN account_timezone;
				  ALTER TABLE accounts DROP COLUMN account_locale;`,
	},
	{
		SequenceNumber: 3,
		Name:           "seed_standard_groups",
		UpSQL: `INSERT INTO access_control_privileges (access_control_privilege_id, access_control_privilege_created_at, access_control_privilege_name)
				VALUES ('` + AdministratorPrivilegeSeedID + `', '` + standardGroupsSeedCreatedAt + `', 'administrator'),
				       ('` + ManagerPrivilegeSeedID + `', '` + standardGroupsSeedCreatedAt + `', 'manager');
				INSERT INTO access_control_groups (access_control_group_id, access_control_group_created_at, access_control_group_updated_at,
					access_control_group_etag, access_control_group_name, access_control_group_description, access_control_group_is_internal)
				VALUES ('` + AdministratorsGroupSeedID + `', '` + standardGroupsSeedCreatedAt + `', '` + standardGroupsSeedCreatedAt + `',
					'` + standardGroupsSeedETag + `', 'Administrators', 'Administrators can manage every account, group and repository.', true),
				       ('` + ManagersGroupSeedID + `', '` + standardGroupsSeedCreatedAt + `', '` + standardGroupsSeedCreatedAt + `',
					'` + standardGroupsSeedETag + `', 'Managers', 'Managers can manage groups and their members.', true);
				INSERT INTO access_control_grants (access_control_grant_id, access_control_grant_created_at, access_control_grant_privilege_id,
					access_control_grant_authorized_group_id)
				VALUES ('` + AdministratorsGrantSeedID + `', '` + standardGroupsSeedCreatedAt + `', '` + AdministratorPrivilegeSeedID + `', '` + AdministratorsGroupSeedID + `'),
				       ('` + ManagersGrantSeedID + `', '` + standardGroupsSeedCreatedAt + `', '` + ManagerPrivilegeSeedID + `', '` + ManagersGroupSeedID + `');`,
		DownSQL: `DELETE FROM access_control_grants WHERE access_control_grant_id IN ('` + AdministratorsGrantSeedID + `', '` + ManagersGrantSeedID + `');
				  DELETE FROM access_control_groups WHERE access_control_group_id IN ('` + AdministratorsGroupSeedID + `', '` + ManagersGroupSeedID + `');
				  DELETE FROM access_control_privileges WHERE access_control_privilege_id IN ('` + AdministratorPrivilegeSeedID + `', '` + ManagerPrivilegeSeedID + `');`,
	},
	{
		SequenceNumber: 4,
		Name:           "create_organizations_and_repos",
		UpSQL: `CREATE TABLE IF NOT EXISTS organizations
				(
					organization_id text NOT NULL PRIMARY KEY,
					organization_created_at timestamp without time zone NOT NULL,
					organization_updated_at timestamp without time zone NOT NULL,
					organization_etag text NOT NULL,
					organization_provider_id bigint NOT NULL,
					organization_name text NOT NULL,
					organization_login text NOT NULL,
					organization_avatar_url text NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS organizations_provider_id_unique_index ON organizations(organization_provider_id);
				CREATE UNIQUE INDEX IF NOT EXISTS organizations_login_unique_index ON organizations(organization_login);

				CREATE TABLE IF NOT EXISTS organization_memberships
				(
					organization_membership_id text NOT NULL PRIMARY KEY,
					organization_membership_created_at timestamp without time zone NOT NULL,
					organization_membership_organization_id text NOT NULL REFERENCES organizations (organization_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					organization_membership_account_id text NOT NULL REFERENCES accounts (account_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					organization_membership_is_admin bool NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS organization_memberships_unique_index ON organization_memberships(
					organization_membership_organization_id,
					organization_membership_account_id);
				CREATE INDEX IF NOT EXISTS organization_memberships_account_id_index ON organization_memberships(organization_membership_account_id);

				CREATE TABLE IF NOT EXISTS repos
				(
					repo_id text NOT NULL PRIMARY KEY,
					repo_created_at timestamp without time zone NOT NULL,
					repo_updated_at timestamp without time zone NOT NULL,
					repo_etag text NOT NULL,
					repo_provider_id bigint NOT NULL,
					repo_name text NOT NULL,
					repo_owner_login text NOT NULL,
					repo_url text NOT NULL,
					repo_description text NOT NULL,
					repo_fork bool NOT NULL,
					repo_private bool NOT NULL,
					repo_push_active bool NOT NULL,
					repo_pull_active bool NOT NULL,
					repo_owner_account_id text REFERENCES accounts (account_id) ON UPDATE NO ACTION ON DELETE SET NULL,
					repo_organization_id text REFERENCES organizations (organization_id) ON UPDATE NO ACTION ON DELETE SET NULL,
					CHECK (repo_owner_account_id IS NULL OR repo_organization_id IS NULL)
				);
				CREATE UNIQUE INDEX IF NOT EXISTS repos_provider_id_unique_index ON repos(repo_provider_id);
				CREATE INDEX IF NOT EXISTS repos_owner_account_id_index ON repos(repo_owner_account_id);
				CREATE INDEX IF NOT EXISTS repos_organization_id_index ON repos(repo_organization_id);
				CREATE UNIQUE INDEX IF NOT EXISTS repos_created_at_id_desc_unique_index ON repos(
					repo_created_at DESC,
					repo_id DESC);

				CREATE TABLE IF NOT EXISTS repo_administrators
				(
					repo_administrator_id text NOT NULL PRIMARY KEY,
					repo_administrator_created_at timestamp without time zone NOT NULL,
					repo_administrator_repo_id text NOT NULL REFERENCES repos (repo_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					repo_administrator_account_id text NOT NULL REFERENCES accounts (account_id) ON UPDATE NO ACTION ON DELETE CASCADE
				);
				CREATE UNIQUE INDEX IF NOT EXISTS repo_administrators_unique_index ON repo_administrators(
					repo_administrator_repo_id,
					repo_administrator_account_id);
				CREATE INDEX IF NOT EXISTS repo_administrators_account_id_index ON repo_administrators(repo_administrator_account_id);

				ALTER TABLE accounts ADD account_sync_lease_expires_at timestamp without time zone;`,
		DownSQL: `ALTER TABLE accounts DROP COLUMN account_sync_lease_expires_at;
				  DROP TABLE repo_administrators;
				  DROP TABLE repos;
				  DROP TABLE organization_memberships;
				  DROP TABLE organizations;`,
	},
}
