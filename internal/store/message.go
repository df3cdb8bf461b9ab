package store

// InsertMessage archives a message. Re-inserting the same event ID is a no-op.
func (db *DB) InsertMessage(m *Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (event_id, topic, payload, received_at, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING`,
		m.EventID, m.Topic, m.Payload, m.ReceivedAt, m.ProcessedAt)
	return err
}

// ListRecent returns the newest limit messages, oldest first.
func (db *DB) ListRecent(limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, event_id, topic, payload, received_at, processed_at
		FROM (SELECT * FROM messages ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// ListSince returns up to limit messages with an ID greater than afterID, oldest first.
func (db *DB) ListSince(afterID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(`
		SELECT id, event_id, topic, payload, received_at, processed_at
		FROM messages
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// CountMessages returns the number of archived messages.
func (db *DB) CountMessages() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanMessages(rows rowScanner) ([]Message, error) {
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.EventID, &m.Topic, &m.Payload, &m.ReceivedAt, &m.ProcessedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
