package models

import "time"

// Server is a configured backend chat server together with the administrator
// credentials used to provision accounts on it. Admin credentials never leave
// the process: the JSON tags hide them from every listing.
type Server struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	AdminUsername string `json:"-"`
	AdminPassword string `json:"-"`

	// Descriptive metadata shown on the server-selection page.
	Description  string `json:"description,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Maintainer   string `json:"maintainer,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Announcement string `json:"announcement,omitempty"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ServerSummary is the public view of an active server offered to users
// during selection.
type ServerSummary struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	URL                 string `json:"url"`
	Description         string `json:"description"`
	Provider            string `json:"provider"`
	Maintainer          string `json:"maintainer"`
	Contact             string `json:"contact"`
	Announcement        string `json:"announcement"`
	RegisteredUserCount int    `json:"registeredUserCount"`
}

// AdminServerView is the administrator listing entry: full record minus the
// stored credentials, plus the registered-user count.
type AdminServerView struct {
	Server
	RegisteredUserCount int `json:"registeredUserCount"`
}
