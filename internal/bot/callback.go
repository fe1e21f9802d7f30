package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback is a decoded inline-keyboard payload. Payloads travel as
// underscore-joined tokens (verb first) and are decoded exactly once,
// here, so handlers never split strings themselves.
type Callback interface {
	isCallback()
}

// VIPPurchase buys a subscription tier
type VIPPurchase struct {
	Days int
}

// OpenEpisode shows one episode with navigation
type OpenEpisode struct {
	AnimeID uint
	Number  int
}

// DownloadEpisode re-sends one episode's media without navigation
type DownloadEpisode struct {
	AnimeID uint
	Number  int
}

// RemoveEpisode deletes one episode (admin only)
type RemoveEpisode struct {
	AnimeID uint
	Number  int
}

// OpenAnime shows a catalog entry's card
type OpenAnime struct {
	AnimeID uint
}

// SearchMode arms a one-shot search prompt: "name", "genre", "code"
// or "image"
type SearchMode struct {
	Mode string
}

// ListRecent shows the most recently added entries
type ListRecent struct{}

// ListTop shows the most searched entries
type ListTop struct{}

// ListAll shows the whole catalog
type ListAll struct{}

// StartIntake begins the guided catalog-entry dialogue (admin only)
type StartIntake struct{}

// StartEpisodeAppend begins the episode-append mini flow (admin only)
type StartEpisodeAppend struct{}

// EditAnime opens catalog editing (admin only)
type EditAnime struct{}

// VerifyMembership re-checks mandatory channel membership
type VerifyMembership struct{}

// Noop acknowledges a non-interactive button
type Noop struct{}

func (VIPPurchase) isCallback()        {}
func (OpenEpisode) isCallback()        {}
func (DownloadEpisode) isCallback()    {}
func (RemoveEpisode) isCallback()      {}
func (OpenAnime) isCallback()          {}
func (SearchMode) isCallback()         {}
func (ListRecent) isCallback()         {}
func (ListTop) isCallback()            {}
func (ListAll) isCallback()            {}
func (StartIntake) isCallback()        {}
func (StartEpisodeAppend) isCallback() {}
func (EditAnime) isCallback()          {}
func (VerifyMembership) isCallback()   {}
func (Noop) isCallback()               {}

// ParseCallback decodes a raw callback payload into its tagged variant
func ParseCallback(data string) (Callback, error) {
	tokens := strings.Split(data, "_")
	verb := tokens[0]
	args := tokens[1:]

	switch verb {
	case "vip":
		days, err := oneIntArg(args)
		if err != nil {
			return nil, fmt.Errorf("vip payload %q: %w", data, err)
		}
		return VIPPurchase{Days: days}, nil
	case "episode":
		id, n, err := idNumberArgs(args)
		if err != nil {
			return nil, fmt.Errorf("episode payload %q: %w", data, err)
		}
		return OpenEpisode{AnimeID: id, Number: n}, nil
	case "download":
		id, n, err := idNumberArgs(args)
		if err != nil {
			return nil, fmt.Errorf("download payload %q: %w", data, err)
		}
		return DownloadEpisode{AnimeID: id, Number: n}, nil
	case "delete":
		id, n, err := idNumberArgs(args)
		if err != nil {
			return nil, fmt.Errorf("delete payload %q: %w", data, err)
		}
		return RemoveEpisode{AnimeID: id, Number: n}, nil
	case "anime":
		id, err := oneIntArg(args)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("anime payload %q: invalid id", data)
		}
		return OpenAnime{AnimeID: uint(id)}, nil
	case "search":
		if len(args) != 1 {
			return nil, fmt.Errorf("search payload %q: want one mode", data)
		}
		switch args[0] {
		case "name", "genre", "code", "image":
			return SearchMode{Mode: args[0]}, nil
		}
		return nil, fmt.Errorf("search payload %q: unknown mode", data)
	case "recent":
		return ListRecent{}, nil
	case "top":
		return ListTop{}, nil
	case "all":
		return ListAll{}, nil
	case "add":
		if len(args) == 1 && args[0] == "anime" {
			return StartIntake{}, nil
		}
		if len(args) == 1 && args[0] == "episode" {
			return StartEpisodeAppend{}, nil
		}
		return nil, fmt.Errorf("add payload %q: unknown target", data)
	case "edit":
		if len(args) == 1 && args[0] == "anime" {
			return EditAnime{}, nil
		}
		return nil, fmt.Errorf("edit payload %q: unknown target", data)
	case "verify":
		return VerifyMembership{}, nil
	case "noop":
		return Noop{}, nil
	}
	return nil, fmt.Errorf("unknown callback verb %q", verb)
}

func oneIntArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("want one argument, got %d", len(args))
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", args[0])
	}
	return v, nil
}

func idNumberArgs(args []string) (uint, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want two arguments, got %d", len(args))
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", args[1])
	}
	return uint(id), n, nil
}
