// Package interactive decodes the structured templates an agent or bot can send
// in place of plain text (quick replies, list pickers, panels, time pickers, carousels).
package interactive

import (
	"chat-session/domain"
	"chat-session/errors"
	"encoding/json"
	"fmt"
)

const (
	TemplateQuickReply = "QuickReply"
	TemplateListPicker = "ListPicker"
	TemplatePanel      = "Panel"
	TemplateTimePicker = "TimePicker"
	TemplateCarousel   = "Carousel"
)

// Content is the decoded form of a message body.
type Content interface {
	TemplateType() string
}

type PlainText struct {
	Text string
}

type QuickReply struct {
	Title    string
	Subtitle string
	Options  []string
}

type ListPickerElement struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	ImageType string `json:"imageType,omitempty"`
	ImageData string `json:"imageData,omitempty"`
}

type ListPicker struct {
	Title    string
	Subtitle string
	ImageURL string
	Options  []ListPickerElement
}

type PanelElement struct {
	Title string `json:"title"`
}

type Panel struct {
	Title            string
	Subtitle         string
	ImageURL         string
	ImageDescription string
	Options          []PanelElement
}

type TimeSlot struct {
	Date     string `json:"date"`
	Duration int    `json:"duration"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Title     string  `json:"title"`
	Radius    *int    `json:"radius,omitempty"`
}

type TimePicker struct {
	Title          string
	Subtitle       string
	TimeZoneOffset *int
	Location       *Location
	TimeSlots      []TimeSlot
}

type Carousel struct {
	Title    string
	Elements []Panel
}

func (PlainText) TemplateType() string  { return "" }
func (QuickReply) TemplateType() string { return TemplateQuickReply }
func (ListPicker) TemplateType() string { return TemplateListPicker }
func (Panel) TemplateType() string      { return TemplatePanel }
func (TimePicker) TemplateType() string { return TemplateTimePicker }
func (Carousel) TemplateType() string   { return TemplateCarousel }

type envelope struct {
	TemplateType string          `json:"templateType"`
	Version      string          `json:"version"`
	Data         json.RawMessage `json:"data"`
}

type panelContent struct {
	Title            string         `json:"title"`
	Subtitle         string         `json:"subtitle"`
	ImageType        string         `json:"imageType"`
	ImageData        string         `json:"imageData"`
	ImageDescription string         `json:"imageDescription"`
	Elements         []PanelElement `json:"elements"`
}

// Decode interprets a message body according to its content type.
// Text and unknown content types decode to PlainText.
func Decode(contentType, text string) (Content, error) {
	if contentType != domain.ContentTypeInteractive {
		return PlainText{Text: text}, nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("%w: interactive template: %v", errors.ErrMalformedFrame, err)
	}
	switch env.TemplateType {
	case TemplateQuickReply:
		return decodeQuickReply(env.Data)
	case TemplateListPicker:
		return decodeListPicker(env.Data)
	case TemplatePanel:
		return decodePanel(env.Data)
	case TemplateTimePicker:
		return decodeTimePicker(env.Data)
	case TemplateCarousel:
		return decodeCarousel(env.Data)
	default:
		return nil, fmt.Errorf("%w: template %q", errors.ErrUnknownContentType, env.TemplateType)
	}
}

func decodeQuickReply(data json.RawMessage) (Content, error) {
	var d struct {
		Content struct {
			Title    string `json:"title"`
			Subtitle string `json:"subtitle"`
			Elements []struct {
				Title string `json:"title"`
			} `json:"elements"`
		} `json:"content"`
	}
	if err := unmarshal(data, &d); err != nil {
		return nil, err
	}
	options := make([]string, 0, len(d.Content.Elements))
	for _, e := range d.Content.Elements {
		options = append(options, e.Title)
	}
	return QuickReply{Title: d.Content.Title, Subtitle: d.Content.Subtitle, Options: options}, nil
}

func decodeListPicker(data json.RawMessage) (Content, error) {
	var d struct {
		Content struct {
			Title     string              `json:"title"`
			Subtitle  string              `json:"subtitle"`
			ImageData string              `json:"imageData"`
			Elements  []ListPickerElement `json:"elements"`
		} `json:"content"`
	}
	if err := unmarshal(data, &d); err != nil {
		return nil, err
	}
	return ListPicker{
		Title:    d.Content.Title,
		Subtitle: d.Content.Subtitle,
		ImageURL: d.Content.ImageData,
		Options:  d.Content.Elements,
	}, nil
}

func decodePanel(data json.RawMessage) (Content, error) {
	var d struct {
		Content panelContent `json:"content"`
	}
	if err := unmarshal(data, &d); err != nil {
		return nil, err
	}
	return toPanel(d.Content), nil
}

func decodeTimePicker(data json.RawMessage) (Content, error) {
	var d struct {
		Content struct {
			Title          string     `json:"title"`
			Subtitle       string     `json:"subtitle"`
			TimeZoneOffset *int       `json:"timeZoneOffset"`
			Location       *Location  `json:"location"`
			TimeSlots      []TimeSlot `json:"timeslots"`
		} `json:"content"`
	}
	if err := unmarshal(data, &d); err != nil {
		return nil, err
	}
	return TimePicker{
		Title:          d.Content.Title,
		Subtitle:       d.Content.Subtitle,
		TimeZoneOffset: d.Content.TimeZoneOffset,
		Location:       d.Content.Location,
		TimeSlots:      d.Content.TimeSlots,
	}, nil
}

func decodeCarousel(data json.RawMessage) (Content, error) {
	var d struct {
		Content struct {
			Title    string `json:"title"`
			Elements []struct {
				TemplateType string `json:"templateType"`
				Data         struct {
					Content panelContent `json:"content"`
				} `json:"data"`
			} `json:"elements"`
		} `json:"content"`
	}
	if err := unmarshal(data, &d); err != nil {
		return nil, err
	}
	carousel := Carousel{Title: d.Content.Title}
	for _, e := range d.Content.Elements {
		carousel.Elements = append(carousel.Elements, toPanel(e.Data.Content))
	}
	return carousel, nil
}

func toPanel(c panelContent) Panel {
	return Panel{
		Title:            c.Title,
		Subtitle:         c.Subtitle,
		ImageURL:         c.ImageData,
		ImageDescription: c.ImageDescription,
		Options:          c.Elements,
	}
}

func unmarshal(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: interactive template data: %v", errors.ErrMalformedFrame, err)
	}
	return nil
}
