package wamp

// Dictionary is a WAMP details/options/kwargs map. Key order is never
// guaranteed on the wire (spec.md §4.1).
type Dictionary map[string]interface{}

// List is a WAMP positional-arguments list. Order is always preserved.
type List []interface{}

// Tag identifies a message variant on the wire; the first element of
// every encoded WAMP message (spec.md §4.1).
type Tag int

const (
	TagHello        Tag = 1
	TagWelcome      Tag = 2
	TagAbort        Tag = 3
	TagGoodbye      Tag = 6
	TagError        Tag = 8
	TagPublish      Tag = 16
	TagPublished    Tag = 17
	TagSubscribe    Tag = 32
	TagSubscribed   Tag = 33
	TagUnsubscribe  Tag = 34
	TagUnsubscribed Tag = 35
	TagEvent        Tag = 36
	TagCall         Tag = 48
	TagResult       Tag = 50
	TagRegister     Tag = 64
	TagRegistered   Tag = 65
	TagUnregister   Tag = 66
	TagUnregistered Tag = 67
	TagInvocation   Tag = 68
	TagYield        Tag = 70
)

func (t Tag) String() string {
	switch t {
	case TagHello:
		return "HELLO"
	case TagWelcome:
		return "WELCOME"
	case TagAbort:
		return "ABORT"
	case TagGoodbye:
		return "GOODBYE"
	case TagError:
		return "ERROR"
	case TagPublish:
		return "PUBLISH"
	case TagPublished:
		return "PUBLISHED"
	case TagSubscribe:
		return "SUBSCRIBE"
	case TagSubscribed:
		return "SUBSCRIBED"
	case TagUnsubscribe:
		return "UNSUBSCRIBE"
	case TagUnsubscribed:
		return "UNSUBSCRIBED"
	case TagEvent:
		return "EVENT"
	case TagCall:
		return "CALL"
	case TagResult:
		return "RESULT"
	case TagRegister:
		return "REGISTER"
	case TagRegistered:
		return "REGISTERED"
	case TagUnregister:
		return "UNREGISTER"
	case TagUnregistered:
		return "UNREGISTERED"
	case TagInvocation:
		return "INVOCATION"
	case TagYield:
		return "YIELD"
	default:
		return "UNKNOWN"
	}
}
