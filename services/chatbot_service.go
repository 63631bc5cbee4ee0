package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"hermes-backend/metrics"
	"hermes-backend/models"
)

// ErrUnknownCommand is returned for input outside the command vocabulary.
var ErrUnknownCommand = errors.New("unknown command")

const (
	CommandStart  = "start"
	CommandHelp   = "help"
	CommandLink   = "link"
	CommandMyData = "mydata"
)

// UpdateCommand binds an update_* command to the single field it writes.
type UpdateCommand struct {
	Name  string
	Field models.Field
	Label string
}

// UpdateCommands is the update vocabulary, in help order.
var UpdateCommands = []UpdateCommand{
	{Name: "update_nama", Field: models.FieldName, Label: "Nama"},
	{Name: "update_pangkat", Field: models.FieldRank, Label: "Pangkat"},
	{Name: "update_telepon", Field: models.FieldPhone, Label: "Telepon"},
	{Name: "update_ig", Field: models.FieldInstagram, Label: "Instagram username"},
	{Name: "update_fb", Field: models.FieldFacebook, Label: "Facebook username"},
	{Name: "update_tt", Field: models.FieldTikTok, Label: "TikTok username"},
	{Name: "update_x", Field: models.FieldX, Label: "X/Twitter username"},
	{Name: "update_yt", Field: models.FieldYouTube, Label: "YouTube username"},
}

func lookupUpdate(name string) (UpdateCommand, bool) {
	for _, c := range UpdateCommands {
		if c.Name == name {
			return c, true
		}
	}
	return UpdateCommand{}, false
}

// CommandResult is what a handled command produced. Record is the linked
// record after the command ran, when the command touched one.
type CommandResult struct {
	Command string
	Update  *UpdateCommand
	Value   string
	Record  *models.Record
}

// CommandError wraps a failure with the command that produced it so the
// transport can word the reply.
type CommandError struct {
	Command string
	Update  *UpdateCommand
	Err     error
}

func (e *CommandError) Error() string { return e.Command + ": " + e.Err.Error() }
func (e *CommandError) Unwrap() error { return e.Err }

// ChatbotService turns chat command lines into identity and record
// operations for one variant.
type ChatbotService struct {
	identity *IdentityService
	records  *RecordService
	log      logrus.FieldLogger
}

func NewChatbotService(identity *IdentityService, records *RecordService, log logrus.FieldLogger) *ChatbotService {
	return &ChatbotService{
		identity: identity,
		records:  records,
		log:      log.WithField("component", "chatbot"),
	}
}

// Variant is the record variant the chat commands operate on.
func (s *ChatbotService) Variant() models.Variant {
	return s.records.Variant()
}

// ParseCommand splits "/cmd@bot arg ..." into a lowercase command and its
// trimmed argument. The leading slash and bot suffix are optional.
func ParseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "/")
	name, arg := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		name, arg = line[:i], line[i+1:]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// Handle runs one command line on behalf of the chat identity handle.
func (s *ChatbotService) Handle(ctx context.Context, handle, line string) (*CommandResult, error) {
	name, arg := ParseCommand(line)

	res, err := s.dispatch(ctx, handle, name, arg)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrUnknownCommand):
		outcome = "unknown"
		name = "unknown"
	case errors.Is(err, models.ErrUnlinked):
		outcome = "unlinked"
	case errors.Is(err, models.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, models.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, models.ErrValidation):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
		s.log.WithError(err).WithFields(logrus.Fields{"command": name, "chat_identity": handle}).Error("Kesalahan saat memproses perintah")
	}
	metrics.ChatCommands.WithLabelValues(name, outcome).Inc()

	return res, err
}

func (s *ChatbotService) dispatch(ctx context.Context, handle, name, arg string) (*CommandResult, error) {
	switch name {
	case CommandStart, CommandHelp:
		return &CommandResult{Command: name}, nil

	case CommandLink:
		if arg == "" {
			return nil, &CommandError{Command: name, Err: models.Invalid("usage: /link <%s>", s.Variant().KeyField)}
		}
		rec, err := s.identity.Link(ctx, arg, handle)
		if err != nil {
			return nil, &CommandError{Command: name, Err: err}
		}
		return &CommandResult{Command: name, Value: arg, Record: rec}, nil

	case CommandMyData:
		rec, err := s.identity.Resolve(ctx, handle)
		if err != nil {
			return nil, &CommandError{Command: name, Err: err}
		}
		return &CommandResult{Command: name, Record: rec}, nil
	}

	cmd, ok := lookupUpdate(name)
	if !ok {
		return nil, ErrUnknownCommand
	}
	linked, err := s.identity.Resolve(ctx, handle)
	if err != nil {
		return nil, &CommandError{Command: name, Update: &cmd, Err: err}
	}
	if arg == "" {
		return nil, &CommandError{Command: name, Update: &cmd, Err: models.Invalid("usage: /%s <value>", cmd.Name)}
	}
	rec, err := s.records.UpdateField(ctx, linked.ID, cmd.Field, arg)
	if err != nil {
		return nil, &CommandError{Command: name, Update: &cmd, Err: err}
	}
	return &CommandResult{Command: name, Update: &cmd, Value: arg, Record: rec}, nil
}
