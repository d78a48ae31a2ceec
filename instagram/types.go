package instagram

import (
	"encoding/json"

	"github.com/odit-bit/expertfinder/socialgraph"
)

type envelope struct {
	Meta       meta            `json:"meta"`
	Pagination pagination      `json:"pagination"`
	Data       json.RawMessage `json:"data"`
}

type meta struct {
	Code         int    `json:"code"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

type pagination struct {
	NextURL string `json:"next_url"`
}

type userInfo struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
	Website  string  `json:"website"`
}

func (u *userInfo) graphUser() *socialgraph.User {
	return &socialgraph.User{
		Network:    Network,
		ExternalID: u.ID,
		Handle:     u.Username,
		URL:        profileURL + u.Username,
	}
}

type media struct {
	ID       string    `json:"id"`
	Link     string    `json:"link"`
	Caption  *caption  `json:"caption"`
	Location *location `json:"location"`
}

type caption struct {
	Text string `json:"text"`
}

type location struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// resource returns nil for media with neither caption nor location.
func (m *media) resource() *socialgraph.Resource {
	var text string
	switch {
	case m.Caption != nil:
		text = m.Caption.Text
		if m.Location != nil {
			text += ". " + m.Location.Name
		}
	case m.Location != nil:
		text = m.Location.Name
	default:
		return nil
	}

	res := &socialgraph.Resource{
		Network:    Network,
		ExternalID: m.ID,
		URL:        m.Link,
		Text:       text,
	}
	if l := m.Location; l != nil && l.Name != "" && l.Latitude != nil && l.Longitude != nil {
		res.Location = &socialgraph.Location{Name: l.Name, Lat: *l.Latitude, Lon: *l.Longitude}
	}
	return res
}
