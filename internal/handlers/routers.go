package handlers

import "github.com/teleroute/teleroute"

// Routers builds the application's router tree in matching order: owner
// commands first, then user commands, then inline queries.
func Routers() []*teleroute.Router {
	owner := teleroute.NewRouter("owner")
	owner.Command([]string{"stats"}, Stats, IsOwner())

	user := teleroute.NewRouter("user")
	user.Command([]string{"start"}, Start)
	user.Command([]string{"help"}, Help)
	user.Command([]string{"about"}, About)

	return []*teleroute.Router{owner, user, InlineRouter()}
}
