package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS milestones (
    file_path            TEXT NOT NULL,
    row_num              INTEGER NOT NULL,
    user_id              TEXT NOT NULL,
    total_cigs_avoided   REAL NOT NULL,
    money_saved          REAL NOT NULL,
    total_cigs_smoked    REAL NOT NULL,
    total_days           INTEGER NOT NULL,
    points               INTEGER NOT NULL,
    PRIMARY KEY (file_path, row_num)
);

CREATE TABLE IF NOT EXISTS rewards (
    file_path            TEXT NOT NULL,
    row_num              INTEGER NOT NULL,
    user_id              TEXT NOT NULL,
    reward_type          TEXT NOT NULL,
    redemption_status    TEXT NOT NULL,
    points               INTEGER NOT NULL,
    PRIMARY KEY (file_path, row_num)
);

CREATE TABLE IF NOT EXISTS notifications (
    file_path            TEXT NOT NULL,
    row_num              INTEGER NOT NULL,
    user_id              TEXT NOT NULL,
    scheduled_at         TEXT,
    channel              TEXT,
    message              TEXT,
    status               TEXT,
    PRIMARY KEY (file_path, row_num)
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_milestones_user ON milestones(user_id);
`

const credentialsSchemaSQL = `
CREATE TABLE IF NOT EXISTS credentials (
    username             TEXT PRIMARY KEY,
    password_hash        TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);
`
