package db

// migration is a single schema step; versions are sequential from 1
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

-- Every message the indexer has seen, purchase or not
CREATE TABLE IF NOT EXISTS emails (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_key TEXT UNIQUE NOT NULL,   -- relative .eml path or imap:<mailbox>:<uid>
    message_id TEXT NOT NULL DEFAULT '',
    subject TEXT NOT NULL DEFAULT '',
    sender TEXT NOT NULL DEFAULT '',
    sender_name TEXT NOT NULL DEFAULT '',
    date DATETIME,
    body_preview TEXT NOT NULL DEFAULT '',
    is_purchase BOOLEAN NOT NULL DEFAULT 0,
    attachment_count INTEGER NOT NULL DEFAULT 0,
    indexed_at DATETIME NOT NULL
);

-- Parser output awaiting human review
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    email_id INTEGER UNIQUE NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    vendor TEXT NOT NULL,
    purchase_date DATETIME NOT NULL,
    purchase_date_source TEXT NOT NULL,
    warranty_end_date DATETIME NOT NULL,
    price REAL,
    currency TEXT NOT NULL DEFAULT 'USD',
    order_number TEXT,
    warranty_info TEXT,
    warranty_hint_months INTEGER,
    description TEXT NOT NULL DEFAULT '',
    confidence INTEGER NOT NULL CHECK (confidence BETWEEN 0 AND 100),
    status TEXT NOT NULL DEFAULT 'pending',
    product_id TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS products (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'Other',
    vendor TEXT NOT NULL,
    serial_number TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    purchase_date DATETIME NOT NULL,
    warranty_end_date DATETIME NOT NULL,
    price REAL,
    currency TEXT NOT NULL DEFAULT 'USD',
    order_number TEXT,
    source TEXT NOT NULL DEFAULT 'manual',
    email_id INTEGER,
    candidate_id TEXT,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    reminder_sent BOOLEAN NOT NULL DEFAULT 0,
    last_reminder_at DATETIME,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    CHECK (warranty_end_date > purchase_date),
    FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE SET NULL
);

-- One product per source email
CREATE UNIQUE INDEX IF NOT EXISTS idx_products_email_id ON products(email_id) WHERE email_id IS NOT NULL;

CREATE VIRTUAL TABLE IF NOT EXISTS products_fts USING fts5(
    name,
    vendor,
    category,
    description,
    serial_number,
    content='products',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS products_ai AFTER INSERT ON products BEGIN
    INSERT INTO products_fts(rowid, name, vendor, category, description, serial_number)
    VALUES (new.rowid, new.name, new.vendor, new.category, new.description, new.serial_number);
END;

CREATE TRIGGER IF NOT EXISTS products_ad AFTER DELETE ON products BEGIN
    INSERT INTO products_fts(products_fts, rowid, name, vendor, category, description, serial_number)
    VALUES ('delete', old.rowid, old.name, old.vendor, old.category, old.description, old.serial_number);
END;

CREATE TRIGGER IF NOT EXISTS products_au AFTER UPDATE ON products BEGIN
    INSERT INTO products_fts(products_fts, rowid, name, vendor, category, description, serial_number)
    VALUES ('delete', old.rowid, old.name, old.vendor, old.category, old.description, old.serial_number);
    INSERT INTO products_fts(rowid, name, vendor, category, description, serial_number)
    VALUES (new.rowid, new.name, new.vendor, new.category, new.description, new.serial_number);
END;

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date DESC);
CREATE INDEX IF NOT EXISTS idx_emails_is_purchase ON emails(is_purchase);
CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status, confidence DESC);
CREATE INDEX IF NOT EXISTS idx_products_warranty_end ON products(warranty_end_date);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_vendor ON products(vendor);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
