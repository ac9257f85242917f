package main

import (
	"chat-session/domain"
	"chat-session/domain/interactive"
	"chat-session/internal"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// chatSession is the part of the session engine the console drives.
type chatSession interface {
	SendMessage(ctx context.Context, contentType, text string) error
	SendAttachment(ctx context.Context, path string) error
	ResendFailedMessage(ctx context.Context, id string) error
	SendEvent(ctx context.Context, contentType, content string) error
	SendMessageReceipt(ctx context.Context, item domain.TranscriptItem, kind domain.ReceiptKind) error
	Transcript(ctx context.Context) ([]domain.TranscriptItem, error)
	Suspend(ctx context.Context) error
	Resume()
	NetworkRestored()
	Disconnect(ctx context.Context) error
	SubscribeEvents(fn func(domain.ChatEvent)) func()
	SubscribeTranscriptItem(fn func(domain.TranscriptItem)) func()
}

type console struct {
	w       io.Writer
	session chatSession
	colours bool

	mu      sync.Mutex
	printed map[string]struct{}
}

func newConsole(w io.Writer, session chatSession, colours bool) *console {
	return &console{w: w, session: session, colours: colours, printed: make(map[string]struct{})}
}

// follow prints lifecycle events and incoming messages until the returned function is called.
// Incoming messages are acknowledged as read once shown.
func (c *console) follow(ctx context.Context) func() {
	stopEvents := c.session.SubscribeEvents(func(evt domain.ChatEvent) {
		if evt.Type == domain.Typing || evt.Type == domain.ReadReceipt || evt.Type == domain.DeliveredReceipt {
			return
		}
		c.println(c.paint(lifecycleStyle(evt.Type), "* "+string(evt.Type)))
	})
	stopItems := c.session.SubscribeTranscriptItem(func(item domain.TranscriptItem) {
		if !item.IsMessage() || item.Message.ParticipantRole == domain.RoleCustomer || !c.firstSight(item.ID) {
			return
		}
		c.println(c.paint(color.New(color.FgCyan), senderOf(item)+": ") + describe(item))
		if !item.FromPastSession {
			_ = c.session.SendMessageReceipt(ctx, item, domain.ReceiptRead)
		}
	})
	return func() {
		stopEvents()
		stopItems()
	}
}

// handle runs one input line. It reports whether the user asked to quit.
func (c *console) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg := parseCommand(line)
	switch cmd {
	case "":
		return false, nil
	case "/quit":
		return true, c.session.Disconnect(ctx)
	case "/attach":
		if arg == "" {
			return false, fmt.Errorf("usage: /attach <path>")
		}
		return false, c.session.SendAttachment(ctx, arg)
	case "/resend":
		if arg == "" {
			return false, fmt.Errorf("usage: /resend <id>")
		}
		return false, c.session.ResendFailedMessage(ctx, arg)
	case "/typing":
		return false, c.session.SendEvent(ctx, domain.ContentTypeTyping, "")
	case "/transcript":
		items, err := c.session.Transcript(ctx)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		renderTranscript(c.w, items)
		return false, nil
	case "/suspend":
		return false, c.session.Suspend(ctx)
	case "/resume":
		c.session.Resume()
		return false, nil
	case "/reconnect":
		// The terminal has no connectivity monitor, the user reports the network is back
		c.session.NetworkRestored()
		return false, nil
	case "/help":
		c.println("commands: /attach <path>, /resend <id>, /typing, /transcript, /suspend, /resume, /reconnect, /quit")
		return false, nil
	case "text":
		return false, c.session.SendMessage(ctx, domain.ContentTypePlainText, arg)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
}

func (c *console) failure(err error) {
	c.println(c.paint(color.New(color.FgRed), "! "+err.Error()))
}

// parseCommand splits a line into a slash command and its argument.
// Any other non-blank line is a message, reported as command "text".
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	if !strings.HasPrefix(line, "/") {
		return "text", line
	}
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func renderTranscript(w io.Writer, items []domain.TranscriptItem) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Kind", "Id", "From", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, item := range items {
		row := internal.RowFor(item)
		if item.IsMessage() {
			row.Detail = describe(item)
		}
		table.Append([]string{row.Timestamp, row.Kind, row.ID, row.Participant, row.Status, row.Detail})
	}
	table.Render()
}

// describe renders a message body, interactive templates included.
func describe(item domain.TranscriptItem) string {
	content, err := interactive.Decode(item.ContentType, item.Message.Text)
	if err != nil {
		return item.Message.Text
	}
	switch t := content.(type) {
	case interactive.QuickReply:
		return fmt.Sprintf("%s [%s]", t.Title, strings.Join(t.Options, " | "))
	case interactive.ListPicker:
		return fmt.Sprintf("%s [%s]", t.Title, strings.Join(lo.Map(t.Options, func(e interactive.ListPickerElement, _ int) string { return e.Title }), " | "))
	case interactive.Panel:
		return fmt.Sprintf("%s [%s]", t.Title, strings.Join(lo.Map(t.Options, func(e interactive.PanelElement, _ int) string { return e.Title }), " | "))
	case interactive.TimePicker:
		return fmt.Sprintf("%s (%d slots)", t.Title, len(t.TimeSlots))
	case interactive.Carousel:
		return fmt.Sprintf("%s (%d cards)", t.Title, len(t.Elements))
	}
	if item.Message.AttachmentID != "" {
		return "[attachment] " + item.Message.Text
	}
	return item.Message.Text
}

func senderOf(item domain.TranscriptItem) string {
	return lo.CoalesceOrEmpty(item.Message.DisplayName, string(item.Message.ParticipantRole))
}

func lifecycleStyle(evt domain.ChatEventType) color.Style {
	switch evt {
	case domain.ConnectionEstablished, domain.ConnectionReEstablished, domain.ParticipantReturned:
		return color.New(color.FgGreen)
	case domain.ConnectionBroken, domain.DeepHeartbeatFailure, domain.ChatEnded, domain.AutoDisconnection:
		return color.New(color.FgRed, color.OpBold)
	default:
		return color.New(color.FgYellow)
	}
}

func (c *console) paint(style color.Style, s string) string {
	if !c.colours {
		return s
	}
	return style.Render(s)
}

func (c *console) firstSight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.printed[id]; ok {
		return false
	}
	c.printed[id] = struct{}{}
	return true
}

func (c *console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}
