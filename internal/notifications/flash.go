package notifications

import (
	"encoding/gob"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName      = "session"
	saveScheduledKey = "notifications.save_scheduled"
)

const (
	KindSuccess = "success"
	KindError   = "error"
)

// Flash is a notification shown on the next rendered page.
type Flash struct {
	Kind  string
	Title string
	Text  string
}

func init() {
	gob.Register(Flash{})
}

// FlashNotifier queues notifications in the user's session.
type FlashNotifier struct {
	c echo.Context
}

func NewFlashNotifier(c echo.Context) *FlashNotifier {
	return &FlashNotifier{c: c}
}

func (n *FlashNotifier) Success(title, text string) {
	n.add(Flash{Kind: KindSuccess, Title: title, Text: text})
}

func (n *FlashNotifier) Error(title, text string) {
	n.add(Flash{Kind: KindError, Title: title, Text: text})
}

func (n *FlashNotifier) add(f Flash) {
	sess, err := getSession(n.c)
	if err != nil {
		n.c.Logger().Warnf("Failed to load session for notification %q: %v", f.Title, err)
		return
	}
	sess.AddFlash(f)
	saveOnCommit(n.c, sess)
}

// Flashes pops the queued notifications.
func Flashes(c echo.Context) []Flash {
	sess, err := getSession(c)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	saveOnCommit(c, sess)

	flashes := make([]Flash, 0, len(raw))
	for _, r := range raw {
		if f, ok := r.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes
}

// saveOnCommit writes the session once, right before the response headers
// are sent, so a request emits a single session cookie however many flashes
// it adds or pops.
func saveOnCommit(c echo.Context, sess *sessions.Session) {
	if c.Get(saveScheduledKey) != nil {
		return
	}
	c.Set(saveScheduledKey, true)
	c.Response().Before(func() {
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			c.Logger().Warnf("Failed to save notifications: %v", err)
		}
	})
}

func getSession(c echo.Context) (*sessions.Session, error) {
	return session.Get(sessionName, c)
}
