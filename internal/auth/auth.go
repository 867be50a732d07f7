// Package auth implements the flat-file authorization gate: a chat-id
// file of authenticated chats, an admin file and an optional allowlist.
// All three are newline-delimited "<id>[ - <name>]" files, read in full
// on every check and appended to without locking. Write volume is one
// line per newly authorized chat, so that trade-off is acceptable.
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Outcome is the result of a password exchange.
type Outcome int

const (
	// Rejected means the submitted password did not match.
	Rejected Outcome = iota
	// Added means the chat was appended to the chat-id file.
	Added
	// AlreadyKnown means the chat was authorized before this attempt.
	AlreadyKnown
)

// ListKind selects which privilege list a check runs against.
type ListKind int

const (
	// AdminList holds the ids/usernames allowed to run admin commands.
	AdminList ListKind = iota
	// AllowList holds the ids/usernames the bot will answer at all
	// when allowlist mode is enabled.
	AllowList
)

// Gate answers authorization questions from the list files.
type Gate struct {
	chatIDFile    string
	adminFile     string
	allowlistFile string
	password      string
	logger        *logrus.Logger
}

// NewGate creates a gate over the three list files.
func NewGate(chatIDFile, adminFile, allowlistFile, password string, logger *logrus.Logger) *Gate {
	return &Gate{
		chatIDFile:    chatIDFile,
		adminFile:     adminFile,
		allowlistFile: allowlistFile,
		password:      password,
		logger:        logger,
	}
}

// IsKnownChat reports whether the chat already passed the password
// exchange.
func (g *Gate) IsKnownChat(chatID int64) bool {
	id := strconv.FormatInt(chatID, 10)
	found, err := scanFile(g.chatIDFile, func(entry string) bool {
		return entry == id
	})
	if err != nil {
		g.logger.WithError(err).WithField("file", g.chatIDFile).Warn("Failed to read chat-id file")
		return false
	}
	return found
}

// IsPrivileged reports whether the user id or username appears in the
// admin or allow list.
func (g *Gate) IsPrivileged(userID int64, username string, kind ListKind) bool {
	path := g.adminFile
	if kind == AllowList {
		path = g.allowlistFile
	}
	id := strconv.FormatInt(userID, 10)
	found, err := scanFile(path, func(entry string) bool {
		return entry == id || (username != "" && entry == username)
	})
	if err != nil {
		g.logger.WithError(err).WithField("file", path).Warn("Failed to read privilege list")
		return false
	}
	return found
}

// Authenticate runs the one-time password exchange for a chat. A match
// appends "<chatid> - <displayName>" (name omitted when empty) to the
// chat-id file. Failed attempts are logged but never throttled; the
// submitted secret itself is not written to the log.
func (g *Gate) Authenticate(candidate string, chatID int64, displayName string) (Outcome, error) {
	if g.IsKnownChat(chatID) {
		return AlreadyKnown, nil
	}

	if candidate != g.password {
		g.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"name":    displayName,
		}).Warning("Failed authentication attempt")
		return Rejected, nil
	}

	line := strconv.FormatInt(chatID, 10)
	if displayName != "" {
		line += " - " + displayName
	}
	if err := appendLine(g.chatIDFile, line); err != nil {
		return Rejected, fmt.Errorf("failed to record authorized chat: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"name":    displayName,
	}).Info("Chat authorized")
	return Added, nil
}

// AuthorizedChats returns every chat id in the chat-id file, used for
// startup notifications.
func (g *Gate) AuthorizedChats() []int64 {
	var chats []int64
	_, err := scanFile(g.chatIDFile, func(entry string) bool {
		if id, err := strconv.ParseInt(entry, 10, 64); err == nil {
			chats = append(chats, id)
		}
		return false
	})
	if err != nil {
		g.logger.WithError(err).WithField("file", g.chatIDFile).Warn("Failed to read chat-id file")
	}
	return chats
}

// scanFile reads a list file line by line and calls match with the id
// part of each entry (the text before " - "). A missing file is the
// same as an empty one.
func scanFile(path string, match func(entry string) bool) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" {
			continue
		}
		entry, _, _ = strings.Cut(entry, " - ")
		if match(strings.TrimSpace(entry)) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func appendLine(path string, line string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(line + "\n")
	return err
}
