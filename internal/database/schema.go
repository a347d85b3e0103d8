package database

var schemas = map[string][]string{
	"mysql":    mysqlSchema,
	"postgres": portableSchema,
	"sqlite3":  portableSchema,
}

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(36) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL DEFAULT '',
    coupon_balance INT NOT NULL DEFAULT 0,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    cartoon_videos_generated INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (coupon_balance >= 0)
)`, `
CREATE TABLE IF NOT EXISTS coupons (
    id VARCHAR(36) PRIMARY KEY,
    code VARCHAR(32) NOT NULL UNIQUE,
    value INT NOT NULL,
    used BOOLEAN NOT NULL DEFAULT FALSE,
    used_by_user VARCHAR(255) NULL,
    created_by_admin VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_coupons_created_at (created_at),
    CHECK (value > 0)
)`, `
CREATE TABLE IF NOT EXISTS coupon_usages (
    id VARCHAR(36) PRIMARY KEY,
    user_id VARCHAR(36) NOT NULL,
    coupon_id VARCHAR(36) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (coupon_id) REFERENCES coupons(id) ON DELETE CASCADE
)`, `
CREATE TABLE IF NOT EXISTS generation_logs (
    id VARCHAR(36) PRIMARY KEY,
    user_id VARCHAR(36) NOT NULL,
    video_type VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL,
    reason TEXT NULL,
    prompt TEXT NULL,
    orientation VARCHAR(32) NULL,
    story_script TEXT NULL,
    characters TEXT NULL,
    response_data TEXT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_generation_logs_user (user_id, video_type, status),
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
}

// portableSchema covers postgres and sqlite, which share CREATE INDEX IF NOT EXISTS.
var portableSchema = []string{`
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(36) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL DEFAULT '',
    coupon_balance INTEGER NOT NULL DEFAULT 0 CHECK (coupon_balance >= 0),
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    cartoon_videos_generated INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, `
CREATE TABLE IF NOT EXISTS coupons (
    id VARCHAR(36) PRIMARY KEY,
    code VARCHAR(32) NOT NULL UNIQUE,
    value INTEGER NOT NULL CHECK (value > 0),
    used BOOLEAN NOT NULL DEFAULT FALSE,
    used_by_user VARCHAR(255) NULL,
    created_by_admin VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, `
CREATE INDEX IF NOT EXISTS idx_coupons_created_at ON coupons (created_at)`, `
CREATE TABLE IF NOT EXISTS coupon_usages (
    id VARCHAR(36) PRIMARY KEY,
    user_id VARCHAR(36) NOT NULL REFERENCES users(id),
    coupon_id VARCHAR(36) NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, `
CREATE TABLE IF NOT EXISTS generation_logs (
    id VARCHAR(36) PRIMARY KEY,
    user_id VARCHAR(36) NOT NULL REFERENCES users(id),
    video_type VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL,
    reason TEXT NULL,
    prompt TEXT NULL,
    orientation VARCHAR(32) NULL,
    story_script TEXT NULL,
    characters TEXT NULL,
    response_data TEXT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, `
CREATE INDEX IF NOT EXISTS idx_generation_logs_user ON generation_logs (user_id, video_type, status)`,
}
