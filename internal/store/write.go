package store

import (
	"context"
	"fmt"
	"time"

	"github.com/loreline/topicsearch/internal/resolve"
)

// The write layer is the ingest side of the archive. AddMessage is the
// interesting path: it maintains the per-topic denormalized counters
// and the topic_participants aggregate in one transaction so the read
// side never recomputes them.

// AddPerson inserts a person and returns their id.
func (s *Store) AddPerson(ctx context.Context, name, email string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO people (name, email, name_folded, email_folded) VALUES (?, ?, ?, ?)",
		name, email, fold(name), fold(email))
	if err != nil {
		return 0, fmt.Errorf("add person: %w", err)
	}
	return res.LastInsertId()
}

// SetContributorRank records a person's contributor rank, replacing any
// previous rank.
func (s *Store) SetContributorRank(ctx context.Context, personID int64, rank string) error {
	if resolve.RankIndex(rank) < 0 {
		return fmt.Errorf("set rank: unknown rank %q", rank)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contributor_memberships (person_id, rank) VALUES (?, ?)
		ON CONFLICT(person_id) DO UPDATE SET rank = excluded.rank`,
		personID, rank)
	if err != nil {
		return fmt.Errorf("set rank: %w", err)
	}
	return nil
}

// AddTeam inserts a team and returns its id.
func (s *Store) AddTeam(ctx context.Context, name string, visibility resolve.Visibility) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO teams (name, name_folded, visibility) VALUES (?, ?, ?)",
		name, fold(name), string(visibility))
	if err != nil {
		return 0, fmt.Errorf("add team: %w", err)
	}
	return res.LastInsertId()
}

// AddTeamMember adds a person to a team. Idempotent.
func (s *Store) AddTeamMember(ctx context.Context, teamID, personID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO team_memberships (team_id, person_id) VALUES (?, ?)",
		teamID, personID)
	if err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// AddTopic creates a topic with no messages yet and returns its id. The
// creator is recorded as last sender until a message arrives.
func (s *Store) AddTopic(ctx context.Context, title string, creatorID int64, createdAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (title, created_at, creator_person_id, last_sender_person_id, last_message_at)
		VALUES (?, ?, ?, ?, ?)`,
		title, createdAt.Unix(), creatorID, creatorID, createdAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("add topic: %w", err)
	}
	return res.LastInsertId()
}

// AddMessage appends a message to a topic and updates the topic's
// counters and the sender's participant aggregate.
func (s *Store) AddMessage(ctx context.Context, topicID, senderID int64, at time.Time, body string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO messages (topic_id, sender_person_id, created_at, body) VALUES (?, ?, ?, ?)",
		topicID, senderID, at.Unix(), body)
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	messageID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}

	var isContributor int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contributor_memberships WHERE person_id = ?", senderID,
	).Scan(&isContributor); err != nil {
		return 0, fmt.Errorf("add message: rank lookup: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO topic_participants (topic_id, person_id, message_count, first_message_at, last_message_at, is_contributor)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(topic_id, person_id) DO UPDATE SET
			message_count = message_count + 1,
			first_message_at = MIN(first_message_at, excluded.first_message_at),
			last_message_at = MAX(last_message_at, excluded.last_message_at),
			is_contributor = excluded.is_contributor`,
		topicID, senderID, at.Unix(), at.Unix(), isContributor)
	if err != nil {
		return 0, fmt.Errorf("add message: participant upsert: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE topics SET
			message_count = message_count + 1,
			last_message_at = MAX(last_message_at, ?),
			last_sender_person_id = ?,
			participant_count = (SELECT COUNT(*) FROM topic_participants WHERE topic_id = topics.id),
			contributor_participant_count = (SELECT COUNT(*) FROM topic_participants WHERE topic_id = topics.id AND is_contributor = 1)
		WHERE id = ?`,
		at.Unix(), senderID, topicID)
	if err != nil {
		return 0, fmt.Errorf("add message: counter update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	return messageID, nil
}

// AddNote attaches a note to a topic. visibility is "public" or
// "private".
func (s *Store) AddNote(ctx context.Context, topicID, authorID int64, body, visibility string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (topic_id, author_person_id, body, visibility, created_at) VALUES (?, ?, ?, ?, ?)",
		topicID, authorID, body, visibility, at.Unix())
	if err != nil {
		return 0, fmt.Errorf("add note: %w", err)
	}
	return res.LastInsertId()
}

// DeleteNote soft-deletes a note. Queries never see deleted notes.
func (s *Store) DeleteNote(ctx context.Context, noteID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notes SET deleted_at = ? WHERE id = ?", at.Unix(), noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// TagNote adds a tag to a note. Tags are stored lowercase. Idempotent.
func (s *Store) TagNote(ctx context.Context, noteID int64, tag string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO note_tags (note_id, tag) VALUES (?, LOWER(?))", noteID, tag)
	if err != nil {
		return fmt.Errorf("tag note: %w", err)
	}
	return nil
}

// AddAttachment records a file attached to a message.
func (s *Store) AddAttachment(ctx context.Context, messageID int64, filename string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO attachments (message_id, filename) VALUES (?, ?)", messageID, filename)
	if err != nil {
		return 0, fmt.Errorf("add attachment: %w", err)
	}
	return res.LastInsertId()
}

// SetReadState records how many of a topic's messages a user has read.
func (s *Store) SetReadState(ctx context.Context, topicID, userID int64, messagesRead int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topic_read_states (topic_id, user_id, messages_read, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(topic_id, user_id) DO UPDATE SET
			messages_read = excluded.messages_read,
			updated_at = excluded.updated_at`,
		topicID, userID, messagesRead, at.Unix())
	if err != nil {
		return fmt.Errorf("set read state: %w", err)
	}
	return nil
}

// StarTopic stars a topic for a user. Idempotent.
func (s *Store) StarTopic(ctx context.Context, topicID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO topic_stars (topic_id, user_id) VALUES (?, ?)", topicID, userID)
	if err != nil {
		return fmt.Errorf("star topic: %w", err)
	}
	return nil
}
