package irc

import "time"

// User is a known IRC user: someone the client shares a channel with
// (learned from JOIN or NAMES), or the client itself. WHO and WHOIS
// replies update users already tracked; they do not add new ones.
type User struct {
	Nick    string
	NickCf  string
	Ident   string
	Host    string
	RealName string
	Account string // "" when logged out or unknown.
	Away    bool
	Oper    bool
	Self    bool
	Monitored bool

	channels map[string]struct{} // channel keys (casefolded) this user shares with us.
}

func newUser(nickCf string, prefix *Prefix) *User {
	u := &User{NickCf: nickCf, channels: map[string]struct{}{}}
	if prefix != nil {
		u.Nick = prefix.Name
		u.Ident = prefix.User
		u.Host = prefix.Host
	} else {
		u.Nick = nickCf
	}
	return u
}

// ChannelUser is a user's membership record within one channel: the
// statuses they hold there, ordered as the server granted them.
type ChannelUser struct {
	User     *User
	Statuses string // status symbols, e.g. "@+"; "" means no status.
}

// HighestStatus returns the best (lowest ordinal) rank this member holds
// in the channel, or -1 if they hold no status, per spec.md §4.4.
func (cu ChannelUser) HighestStatus(prefix PrefixSpec) int {
	best := -1
	for i := 0; i < len(cu.Statuses); i++ {
		r := prefix.Rank(cu.Statuses[i])
		if r < 0 {
			continue
		}
		if best < 0 || r < best {
			best = r
		}
	}
	return best
}

func (cu *ChannelUser) addStatus(symbol byte) {
	for i := 0; i < len(cu.Statuses); i++ {
		if cu.Statuses[i] == symbol {
			return
		}
	}
	cu.Statuses += string(symbol)
}

func (cu *ChannelUser) removeStatus(symbol byte) {
	i := -1
	for j := 0; j < len(cu.Statuses); j++ {
		if cu.Statuses[j] == symbol {
			i = j
			break
		}
	}
	if i < 0 {
		return
	}
	cu.Statuses = cu.Statuses[:i] + cu.Statuses[i+1:]
}

// Channel is a joined channel: its topic, creation time, mode set, and
// membership.
type Channel struct {
	Name        string
	NameCf      string
	Topic       string
	TopicSetter string
	TopicTime   time.Time
	CreatedAt   time.Time
	Secret      bool
	Complete    bool // NAMES list fully received.

	Members map[string]*ChannelUser // nickCf -> membership
	Lists   map[byte][]string       // type-A list modes, mode char -> masks
}

func newChannel(name, nameCf string) *Channel {
	return &Channel{
		Name:    name,
		NameCf:  nameCf,
		Members: map[string]*ChannelUser{},
		Lists:   map[byte][]string{},
	}
}

// tracker is the authoritative in-memory model: users, channels, and the
// membership/status bookkeeping between them (C4). It is owned and
// mutated exclusively by the session's reader context.
type tracker struct {
	casemap  CaseMapping
	features Features

	users    map[string]*User    // nickCf -> User
	channels map[string]*Channel // nameCf -> Channel

	selfNick   string
	selfNickCf string
}

func newTracker() *tracker {
	f := DefaultFeatures()
	return &tracker{
		casemap:  caseMappingByName(f.CaseMapping),
		features: f,
		users:    map[string]*User{},
		channels: map[string]*Channel{},
	}
}

func (t *tracker) fold(s string) string { return t.casemap(s) }

func (t *tracker) isChannel(name string) bool {
	return len(name) > 0 && indexAny(t.features.ChanTypes, name[0])
}

func indexAny(set string, b byte) bool {
	for i := 0; i < len(set); i++ {
		if set[i] == b {
			return true
		}
	}
	return false
}

func (t *tracker) isSelf(nickCf string) bool {
	return t.selfNickCf != "" && t.selfNickCf == nickCf
}

// updateISupport decodes one 005 line's tokens and rekeys every
// container if CASEMAPPING changed.
func (t *tracker) updateISupport(tokens []string) {
	if t.features.Update(tokens) {
		t.casemap = caseMappingByName(t.features.CaseMapping)
		t.rekey()
	}
}

func (t *tracker) rekey() {
	newUsers := make(map[string]*User, len(t.users))
	for _, u := range t.users {
		nickCf := t.fold(u.Nick)
		u.NickCf = nickCf
		u.channels = map[string]struct{}{}
		newUsers[nickCf] = u
	}
	t.users = newUsers
	if t.selfNick != "" {
		t.selfNickCf = t.fold(t.selfNick)
	}

	newChannels := make(map[string]*Channel, len(t.channels))
	for _, c := range t.channels {
		nameCf := t.fold(c.Name)
		c.NameCf = nameCf
		newMembers := make(map[string]*ChannelUser, len(c.Members))
		for _, cu := range c.Members {
			newMembers[cu.User.NickCf] = cu
			cu.User.channels[nameCf] = struct{}{}
		}
		c.Members = newMembers
		newChannels[nameCf] = c
	}
	t.channels = newChannels
}

// ensureUser returns the User for prefix, creating it if this is the
// first sighting.
func (t *tracker) ensureUser(prefix *Prefix) *User {
	nickCf := t.fold(prefix.Name)
	if u, ok := t.users[nickCf]; ok {
		if prefix.User != "" {
			u.Ident = prefix.User
		}
		if prefix.Host != "" {
			u.Host = prefix.Host
		}
		return u
	}
	u := newUser(nickCf, prefix)
	t.users[nickCf] = u
	return u
}

func (t *tracker) userByNick(nick string) (*User, bool) {
	u, ok := t.users[t.fold(nick)]
	return u, ok
}

func (t *tracker) channelByName(name string) (*Channel, bool) {
	c, ok := t.channels[t.fold(name)]
	return c, ok
}

// disappeared reports whether u should be removed per the disappearance
// policy: zero shared channels, not monitored, not self.
func (u *User) disappeared() bool {
	return !u.Self && !u.Monitored && len(u.channels) == 0
}

// cleanupUser removes u from the user table if it has disappeared,
// returning true if it was removed.
func (t *tracker) cleanupUser(u *User) bool {
	if !u.disappeared() {
		return false
	}
	delete(t.users, u.NickCf)
	return true
}

func (t *tracker) joinLocal(name string) *Channel {
	nameCf := t.fold(name)
	c := newChannel(name, nameCf)
	c.CreatedAt = time.Now()
	t.channels[nameCf] = c
	return c
}

// addMember creates or updates a membership record for user in channel,
// maintaining the channel<->user back-references (tested by the
// membership bijection invariant, spec.md §8).
func (t *tracker) addMember(c *Channel, u *User, statuses string) *ChannelUser {
	cu, ok := c.Members[u.NickCf]
	if !ok {
		cu = &ChannelUser{User: u, Statuses: statuses}
		c.Members[u.NickCf] = cu
		u.channels[c.NameCf] = struct{}{}
	} else if statuses != "" {
		cu.Statuses = statuses
	}
	return cu
}

// removeMember removes u's membership in c, maintaining back-references,
// and cleans up u from the user table if it has now disappeared. Reports
// whether u disappeared.
func (t *tracker) removeMember(c *Channel, u *User) bool {
	delete(c.Members, u.NickCf)
	delete(u.channels, c.NameCf)
	return t.cleanupUser(u)
}

// removePartedChannel tears down a channel the local user left, clearing
// every remaining member's back-reference to it. Returns the nicks of
// any members that disappeared as a result.
func (t *tracker) removePartedChannel(c *Channel) []string {
	delete(t.channels, c.NameCf)
	var disappeared []string
	for _, cu := range c.Members {
		delete(cu.User.channels, c.NameCf)
		if t.cleanupUser(cu.User) {
			disappeared = append(disappeared, cu.User.Nick)
		}
	}
	return disappeared
}

// removeUserEverywhere removes u from every channel (QUIT), returning the
// channels it was removed from and whether u disappeared as a result.
func (t *tracker) removeUserEverywhere(u *User) ([]*Channel, bool) {
	var left []*Channel
	for _, c := range t.channels {
		if _, ok := c.Members[u.NickCf]; ok {
			delete(c.Members, u.NickCf)
			left = append(left, c)
		}
	}
	u.channels = map[string]struct{}{}
	return left, t.cleanupUser(u)
}

// renameUser re-keys u in the user table and every channel's membership
// map in place — no User is ever reallocated by a NICK change.
func (t *tracker) renameUser(u *User, newNick string) {
	oldCf := u.NickCf
	newCf := t.fold(newNick)

	delete(t.users, oldCf)
	u.Nick = newNick
	u.NickCf = newCf
	t.users[newCf] = u

	for cf := range u.channels {
		c, ok := t.channels[cf]
		if !ok {
			continue
		}
		cu, ok := c.Members[oldCf]
		if !ok {
			continue
		}
		delete(c.Members, oldCf)
		c.Members[newCf] = cu
	}

	if t.selfNickCf == oldCf {
		t.selfNick = newNick
		t.selfNickCf = newCf
	}
}
