//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message StoredMessage) error
	Messages(groupID uuid.UUID, cursor *string) ([]StoredMessage, *string, error)
	DropGroup(groupID uuid.UUID) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) IMessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// StoredMessage is the durable form of a chat message.
type StoredMessage struct {
	ID         uuid.UUID `json:"id"`
	GroupID    uuid.UUID `json:"group_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	At         time.Time `json:"at"`
}

func groupPrefix(groupID uuid.UUID) string {
	return fmt.Sprintf("msg:%s:", groupID)
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{group_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message UUID as a collision
//     disconnector if two messages arrive at the same nanosecond.
func (m *MessageRepository) StoreMessage(message StoredMessage) error {
	key := fmt.Sprintf("%s%019d:%s",
		groupPrefix(message.GroupID),
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// Messages retrieves history for a group using a reverse prefix scan, newest
// page first but each page in chronological order. Thanks to the padded
// timestamp in the key no sort step is needed. The returned cursor resumes
// the scan on the next call; it stops collecting once limitMessages is
// reached.
func (m *MessageRepository) Messages(groupID uuid.UUID, cursor *string) ([]StoredMessage, *string, error) {
	var rawValues [][]byte
	var lastKey string

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := groupPrefix(groupID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawValues) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			if err := item.Value(func(value []byte) error {
				rawValues = append(rawValues, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Reverse scan yields newest first; flip back to chronological.
	messages := make([]StoredMessage, 0, len(rawValues))
	for i := len(rawValues) - 1; i >= 0; i-- {
		var message StoredMessage
		if err := json.Unmarshal(rawValues[i], &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}

// DropGroup discards the whole history of a group. Used by the
// group-deletion cascade when the last member leaves.
func (m *MessageRepository) DropGroup(groupID uuid.UUID) error {
	return m.db.DropPrefix([]byte(groupPrefix(groupID)))
}
