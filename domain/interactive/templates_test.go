package interactive

import (
	"chat-session/domain"
	"chat-session/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_PlainText(t *testing.T) {
	req := require.New(t)

	content, err := Decode(domain.ContentTypePlainText, "hello")

	req.NoError(err)
	req.Equal(PlainText{Text: "hello"}, content)
}

func TestDecode_QuickReply(t *testing.T) {
	req := require.New(t)
	text := `{"templateType":"QuickReply","version":"1.0","data":{"content":{"title":"How was it?","elements":[{"title":"Good"},{"title":"Bad"}]}}}`

	content, err := Decode(domain.ContentTypeInteractive, text)

	req.NoError(err)
	quickReply, ok := content.(QuickReply)
	req.True(ok)
	req.Equal("How was it?", quickReply.Title)
	req.Equal([]string{"Good", "Bad"}, quickReply.Options)
}

func TestDecode_ListPicker(t *testing.T) {
	req := require.New(t)
	text := `{"templateType":"ListPicker","version":"1.0","data":{"content":{"title":"Pick one","subtitle":"any","imageData":"https://img/x.png","elements":[{"title":"A","subtitle":"first"}]}}}`

	content, err := Decode(domain.ContentTypeInteractive, text)

	req.NoError(err)
	picker := content.(ListPicker)
	req.Equal("https://img/x.png", picker.ImageURL)
	req.Equal([]ListPickerElement{{Title: "A", Subtitle: "first"}}, picker.Options)
}

func TestDecode_TimePickerAndCarousel(t *testing.T) {
	req := require.New(t)
	timePicker := `{"templateType":"TimePicker","version":"1.0","data":{"content":{"title":"When?","timeZoneOffset":-420,"timeslots":[{"date":"2026-01-01T10:00+00:00","duration":60}]}}}`
	carousel := `{"templateType":"Carousel","version":"1.0","data":{"content":{"title":"Offers","elements":[{"templateIdentifier":"a","templateType":"Panel","version":"1.0","data":{"content":{"title":"Panel A","elements":[{"title":"Yes"}]}}}]}}}`

	content, err := Decode(domain.ContentTypeInteractive, timePicker)
	req.NoError(err)
	tp := content.(TimePicker)
	req.Equal(-420, *tp.TimeZoneOffset)
	req.Len(tp.TimeSlots, 1)

	content, err = Decode(domain.ContentTypeInteractive, carousel)
	req.NoError(err)
	c := content.(Carousel)
	req.Equal(TemplateCarousel, c.TemplateType())
	req.Len(c.Elements, 1)
	req.Equal("Panel A", c.Elements[0].Title)
	req.Equal([]PanelElement{{Title: "Yes"}}, c.Elements[0].Options)
}

func TestDecode_Errors(t *testing.T) {
	req := require.New(t)

	_, err := Decode(domain.ContentTypeInteractive, "not json")
	req.ErrorIs(err, errors.ErrMalformedFrame)

	_, err = Decode(domain.ContentTypeInteractive, `{"templateType":"Wheel","data":{}}`)
	req.ErrorIs(err, errors.ErrUnknownContentType)
	req.ErrorIs(err, errors.ErrProtocolDecode)
}
