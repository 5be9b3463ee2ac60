package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// schemaDDL defines the full schema. Uniqueness constraints are load-bearing:
// they are the arbitration mechanism for concurrent reconciliation, not just
// data hygiene.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id               UUID PRIMARY KEY,
    email            TEXT NOT NULL UNIQUE,
    name             TEXT NOT NULL,
    role             TEXT NOT NULL DEFAULT 'student',
    notify_chat_id   BIGINT NOT NULL DEFAULT 0,
    subscribed_until TIMESTAMPTZ,
    registered_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courses (
    id          UUID PRIMARY KEY,
    owner_id    UUID NOT NULL REFERENCES users(id),
    title       TEXT NOT NULL,
    price_minor BIGINT NOT NULL CHECK (price_minor > 0),
    currency    TEXT NOT NULL,
    published   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS features (
    id          UUID PRIMARY KEY,
    slug        TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    price_minor BIGINT NOT NULL CHECK (price_minor > 0),
    currency    TEXT NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS checkout_sessions (
    id                  UUID PRIMARY KEY,
    provider_session_id TEXT NOT NULL UNIQUE,
    provider            TEXT NOT NULL,
    buyer_id            UUID NOT NULL REFERENCES users(id),
    purchasable_type    TEXT NOT NULL,
    course_id           UUID REFERENCES courses(id),
    feature_id          UUID REFERENCES features(id),
    amount_minor        BIGINT NOT NULL,
    currency            TEXT NOT NULL,
    redirect_url        TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'pending',
    metadata            JSONB NOT NULL DEFAULT '{}',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_checkout_sessions_pending
    ON checkout_sessions (created_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS payments (
    id                   UUID PRIMARY KEY,
    provider_payment_ref TEXT UNIQUE,
    provider             TEXT NOT NULL,
    buyer_id             UUID NOT NULL REFERENCES users(id),
    purchasable_type     TEXT NOT NULL,
    course_id            UUID REFERENCES courses(id),
    feature_id           UUID REFERENCES features(id),
    amount_minor         BIGINT NOT NULL,
    currency             TEXT NOT NULL,
    status               TEXT NOT NULL,
    test_mode            BOOLEAN NOT NULL DEFAULT FALSE,
    checkout_session_id  UUID NOT NULL UNIQUE REFERENCES checkout_sessions(id),
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    paid_at              TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS enrollments (
    id               UUID PRIMARY KEY,
    user_id          UUID NOT NULL REFERENCES users(id),
    course_id        UUID NOT NULL REFERENCES courses(id),
    status           TEXT NOT NULL DEFAULT 'ACTIVE',
    progress_percent INT NOT NULL DEFAULT 0,
    completed_at     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS feature_grants (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES users(id),
    feature_id UUID NOT NULL REFERENCES features(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, feature_id)
);

CREATE TABLE IF NOT EXISTS certificates (
    id        UUID PRIMARY KEY,
    user_id   UUID NOT NULL REFERENCES users(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          TEXT PRIMARY KEY,
    actor_id    TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    meta        JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_log_target ON audit_log (target_type, target_id);
`

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaDDL)
	return err
}
