package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// maxUpdateAttempts bounds the read-transform-write loop in UpdateContent
// when the file changes between read and write.
const maxUpdateAttempts = 3

// DefaultCommitMessage is used when ContentStoreConfig leaves it empty.
const DefaultCommitMessage = "Import bookmarks from browser"

// Target identifies one file in one repository and the credentials used to
// reach it. Branch may be empty for the repository's default branch.
type Target struct {
	Token  string
	Owner  string
	Repo   string
	Path   string
	Branch string
}

// Complete reports whether t carries everything needed to reach the file.
func (t Target) Complete() bool {
	return t.Token != "" && t.Owner != "" && t.Repo != "" && t.Path != ""
}

func (t Target) tokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: t.Token, TokenType: "Bearer"})
}

func (t Target) contentsPath() string {
	segments := strings.Split(strings.Trim(t.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(t.Owner), url.PathEscape(t.Repo), strings.Join(segments, "/"))
}

func (t Target) refQuery() string {
	if t.Branch == "" {
		return ""
	}

	return "?ref=" + url.QueryEscape(t.Branch)
}

// ContentStoreConfig holds the options for NewContentStore.
type ContentStoreConfig struct {
	Client        *Client
	CommitMessage string
	Logger        *slog.Logger
}

// ContentStore reads and commits a single text file through the
// repository contents API.
type ContentStore struct {
	client        *Client
	commitMessage string
	logger        *slog.Logger
}

// NewContentStore creates a ContentStore.
func NewContentStore(cfg ContentStoreConfig) *ContentStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	msg := cfg.CommitMessage
	if msg == "" {
		msg = DefaultCommitMessage
	}

	return &ContentStore{client: cfg.Client, commitMessage: msg, logger: logger}
}

// fileResponse is the subset of the contents API file object we use.
type fileResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

type blobResponse struct {
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// GetContent returns the current text of the target file.
func (s *ContentStore) GetContent(ctx context.Context, target Target) (string, error) {
	if !target.Complete() {
		return "", ErrIncompleteTarget
	}

	text, _, err := s.read(ctx, target)
	if err != nil {
		return "", err
	}

	return text, nil
}

// UpdateContent performs a read-modify-write of the target file. transform
// receives the current text, or nil when the file does not exist yet, and
// returns the text to commit. The write carries the blob sha that was read,
// so a concurrent change makes GitHub reject it; the whole cycle is then
// repeated with fresh content. The committed text is returned. When the
// transform returns the existing text unchanged nothing is written.
func (s *ContentStore) UpdateContent(
	ctx context.Context, target Target, transform func(existing *string) (string, error),
) (string, error) {
	if !target.Complete() {
		return "", ErrIncompleteTarget
	}

	var lastErr error

	for attempt := range maxUpdateAttempts {
		existing, sha, err := s.readOptional(ctx, target)
		if err != nil {
			return "", err
		}

		next, err := transform(existing)
		if err != nil {
			return "", fmt.Errorf("github: transforming %s: %w", target.Path, err)
		}

		if existing != nil && *existing == next {
			s.logger.Debug("content unchanged, skipping commit", slog.String("path", target.Path))

			return next, nil
		}

		err = s.write(ctx, target, next, sha)
		if err == nil {
			return next, nil
		}

		if !isStaleWrite(err, sha) {
			return "", err
		}

		lastErr = err
		s.logger.Warn("file changed during update, retrying",
			slog.String("path", target.Path),
			slog.Int("attempt", attempt+1),
		)
	}

	return "", fmt.Errorf("github: updating %s: gave up after %d attempts: %w", target.Path, maxUpdateAttempts, lastErr)
}

// Verify checks that the token can read the target file. A missing file is
// accepted as long as the repository itself is reachable, since the first
// import creates it.
func (s *ContentStore) Verify(ctx context.Context, target Target) error {
	if !target.Complete() {
		return ErrIncompleteTarget
	}

	_, _, err := s.readOptional(ctx, target)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(target.Owner), url.PathEscape(target.Repo))

	resp, err := s.client.Do(ctx, target.tokenSource(), http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("github: checking repository %s/%s: %w", target.Owner, target.Repo, err)
	}

	resp.Body.Close()

	return nil
}

// isStaleWrite reports whether a failed PUT means the file moved under us:
// 409 for a sha mismatch, or 422 when we believed the file absent.
func isStaleWrite(err error, sha string) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}

	return sha == "" && errors.Is(err, ErrUnprocessable)
}

// readOptional is read with a missing file reported as nil text.
func (s *ContentStore) readOptional(ctx context.Context, target Target) (*string, string, error) {
	text, sha, err := s.read(ctx, target)
	if errors.Is(err, ErrNotFound) {
		return nil, "", nil
	}

	if err != nil {
		return nil, "", err
	}

	return &text, sha, nil
}

func (s *ContentStore) read(ctx context.Context, target Target) (string, string, error) {
	resp, err := s.client.Do(ctx, target.tokenSource(), http.MethodGet, target.contentsPath()+target.refQuery(), nil)
	if err != nil {
		return "", "", fmt.Errorf("github: reading %s: %w", target.Path, err)
	}
	defer resp.Body.Close()

	var file fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return "", "", fmt.Errorf("github: decoding %s: %w", target.Path, err)
	}

	if file.Type != "" && file.Type != "file" {
		return "", "", fmt.Errorf("github: %s is a %s, not a file", target.Path, file.Type)
	}

	// Files over 1 MB come back without inline content.
	if file.Encoding == "none" {
		text, err := s.readBlob(ctx, target, file.SHA)
		if err != nil {
			return "", "", err
		}

		return text, file.SHA, nil
	}

	text, err := decodeContent(file.Encoding, file.Content)
	if err != nil {
		return "", "", fmt.Errorf("github: decoding %s: %w", target.Path, err)
	}

	return text, file.SHA, nil
}

func (s *ContentStore) readBlob(ctx context.Context, target Target, sha string) (string, error) {
	if sha == "" {
		return "", nil
	}

	path := fmt.Sprintf("/repos/%s/%s/git/blobs/%s",
		url.PathEscape(target.Owner), url.PathEscape(target.Repo), url.PathEscape(sha))

	resp, err := s.client.Do(ctx, target.tokenSource(), http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("github: reading blob of %s: %w", target.Path, err)
	}
	defer resp.Body.Close()

	var blob blobResponse
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return "", fmt.Errorf("github: decoding blob of %s: %w", target.Path, err)
	}

	text, err := decodeContent(blob.Encoding, blob.Content)
	if err != nil {
		return "", fmt.Errorf("github: decoding blob of %s: %w", target.Path, err)
	}

	return text, nil
}

func (s *ContentStore) write(ctx context.Context, target Target, text, sha string) error {
	body, err := json.Marshal(putRequest{
		Message: s.commitMessage,
		Content: base64.StdEncoding.EncodeToString([]byte(text)),
		SHA:     sha,
		Branch:  target.Branch,
	})
	if err != nil {
		return fmt.Errorf("github: encoding commit: %w", err)
	}

	resp, err := s.client.Do(ctx, target.tokenSource(), http.MethodPut, target.contentsPath(), body)
	if err != nil {
		return fmt.Errorf("github: committing %s: %w", target.Path, err)
	}
	defer resp.Body.Close()

	var out putResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("github: decoding commit response: %w", err)
	}

	s.logger.Info("committed bookmark document",
		slog.String("path", target.Path),
		slog.String("commit", out.Commit.SHA),
	)

	return nil
}

func decodeContent(encoding, content string) (string, error) {
	switch encoding {
	case "", "utf-8":
		return content, nil
	case "base64":
		// The API wraps base64 payloads at 60 columns.
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return "", err
		}

		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}
