package mysql

const insertEstablishmentSQL = `
INSERT INTO establishments
  (id, tenant_id, alias, name, city, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
`

const aliasExistsSQL = `SELECT EXISTS(SELECT 1 FROM establishments WHERE alias = ?)`

// Scoped by tenant so an owner can only rotate their own alias.
const updateAliasSQL = `
UPDATE establishments
SET alias = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND tenant_id = ?
`

const selectEstablishmentCols = `SELECT id, tenant_id, alias, name, city, created_at, updated_at FROM establishments`

const findByAliasSQL = selectEstablishmentCols + ` WHERE alias = ?`

const getForTenantSQL = selectEstablishmentCols + ` WHERE id = ? AND tenant_id = ?`

const findByDedupKeySQL = `
SELECT id FROM reviews
WHERE establishment_id = ? AND dedup_key = ?
LIMIT 1
`

// The tenant_id written is the establishment's own, and the row is only
// produced when it equals the caller's tenant. Zero rows affected means the
// caller's view of ownership is wrong.
// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewSQL = "INSERT INTO reviews\n" +
	"  (id, tenant_id, establishment_id, source, rating, `text`, author, dedup_key, raw_capture, review_date, created_at)\n" +
	"SELECT ?, e.tenant_id, e.id, ?, ?, ?, ?, ?, ?, ?, ?\n" +
	"FROM establishments e\n" +
	"WHERE e.id = ? AND e.tenant_id = ?\n"

const listBySourceSQL = "SELECT id, tenant_id, establishment_id, source, rating, `text`, author, dedup_key, raw_capture, review_date, created_at\n" +
	"FROM reviews\n" +
	"WHERE tenant_id = ? AND source = ?\n" +
	"ORDER BY created_at DESC, id DESC\n" +
	"LIMIT ?\n"

const planForSQL = `SELECT tenant_id, tier, status FROM tenant_plans WHERE tenant_id = ?`

const insertRejectionSQL = `
INSERT INTO inbound_rejections (recipient, alias_candidate, reason, message_id, created_at)
VALUES (?, ?, ?, ?, ?)
`
