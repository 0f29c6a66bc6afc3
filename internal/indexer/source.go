package indexer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/felo/warranty-tracker/internal/mailbox"
	"github.com/felo/warranty-tracker/internal/parser"
	"github.com/felo/warranty-tracker/internal/scanner"
)

// Item is one message found in a source. Known items were indexed before
// and carry no loader.
type Item struct {
	Key   string
	Known bool
	Load  func() (*parser.ParsedEmail, error)
}

// KnownFunc reports which of keys are already indexed
type KnownFunc func(ctx context.Context, keys []string) (map[string]bool, error)

// Source enumerates the messages of one mail store
type Source interface {
	Name() string
	Items(ctx context.Context, known KnownFunc) ([]Item, error)
}

// FileSource reads .eml files below a directory. Keys are the relative
// slash paths returned by the scanner.
type FileSource struct {
	scanner *scanner.Scanner
}

// NewFileSource creates a source for the .eml files under root
func NewFileSource(root string) *FileSource {
	return &FileSource{scanner: scanner.NewScanner(root)}
}

// Name identifies the source in logs
func (s *FileSource) Name() string {
	return "files:" + s.scanner.GetRootPath()
}

// Items lists every .eml file. Files are parsed lazily by the workers.
func (s *FileSource) Items(ctx context.Context, known KnownFunc) ([]Item, error) {
	files, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for files: %w", err)
	}

	seen, err := known(ctx, files)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(files))
	for i, file := range files {
		items[i] = Item{Key: file, Known: seen[file]}
		if seen[file] {
			continue
		}
		path, err := s.scanner.Resolve(file)
		if err != nil {
			return nil, err
		}
		items[i].Load = func() (*parser.ParsedEmail, error) {
			return parser.ParseEMLFile(path)
		}
	}
	return items, nil
}

// Mailbox is the IMAP client used by IMAPSource
type Mailbox interface {
	SourceKey(uid uint32) string
	ListUIDs(ctx context.Context) ([]uint32, error)
	Fetch(ctx context.Context, skip func(uid uint32) bool) ([]mailbox.Message, error)
}

// IMAPSource reads messages from an IMAP mailbox. Only messages that are
// not yet indexed are downloaded.
type IMAPSource struct {
	client Mailbox
	name   string
}

// NewIMAPSource wraps an IMAP client
func NewIMAPSource(client *mailbox.Client) *IMAPSource {
	return &IMAPSource{client: client, name: "imap:" + client.Mailbox()}
}

// Name identifies the source in logs
func (s *IMAPSource) Name() string {
	return s.name
}

// Items lists the UIDs in the search window and fetches the new ones
func (s *IMAPSource) Items(ctx context.Context, known KnownFunc) ([]Item, error) {
	uids, err := s.client.ListUIDs(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = s.client.SourceKey(uid)
	}
	seen, err := known(ctx, keys)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(uids))
	for _, key := range keys {
		if seen[key] {
			items = append(items, Item{Key: key, Known: true})
		}
	}
	if len(items) == len(uids) {
		return items, nil
	}

	messages, err := s.client.Fetch(ctx, func(uid uint32) bool {
		return seen[s.client.SourceKey(uid)]
	})
	if err != nil {
		return nil, err
	}

	for _, msg := range messages {
		raw := msg.Raw
		items = append(items, Item{
			Key: s.client.SourceKey(msg.UID),
			Load: func() (*parser.ParsedEmail, error) {
				return parser.ParseEML(bytes.NewReader(raw))
			},
		})
	}
	return items, nil
}
