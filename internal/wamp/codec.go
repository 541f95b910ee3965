package wamp

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/nmxmxh/battlerealm/pkg/errors"
)

// wireJSON is the json-iterator configuration used for the WAMP wire
// codec: API-compatible with encoding/json (so []byte output matches
// what a wamp.2.json peer expects) but considerably faster on the hot
// dispatch path (spec.md §6 "JSON arrays").
var wireJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes a Message into its WAMP wire form: a JSON array
// whose first element is the numeric tag, followed by the message's
// fields in the fixed order from spec.md §4.1. Trailing fields that are
// an empty List or empty Dictionary are omitted.
func Encode(m Message) ([]byte, error) {
	elems := []interface{}{int(m.Tag())}

	switch v := m.(type) {
	case HelloMessage:
		elems = append(elems, v.Realm)
		if len(v.Details) > 0 {
			elems = append(elems, v.Details)
		}
	case WelcomeMessage:
		elems = append(elems, v.SessionID)
		if len(v.Details) > 0 {
			elems = append(elems, v.Details)
		}
	case AbortMessage:
		elems = append(elems, v.Details, v.Reason)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case GoodbyeMessage:
		elems = append(elems, v.Details, v.Reason)
	case ErrorMessage:
		elems = append(elems, int(v.RequestType), v.Request, v.Details, v.Error)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case PublishMessage:
		elems = append(elems, v.Request, v.Options, v.Topic)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case PublishedMessage:
		elems = append(elems, v.PublishRequest, v.Publication)
	case SubscribeMessage:
		elems = append(elems, v.Request, v.Options, v.Topic)
	case SubscribedMessage:
		elems = append(elems, v.SubscribeRequest, v.Subscription)
	case UnsubscribeMessage:
		elems = append(elems, v.Request, v.Subscription)
	case UnsubscribedMessage:
		elems = append(elems, v.UnsubscribeRequest)
	case EventMessage:
		elems = append(elems, v.Subscription, v.Publication, v.Details)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case CallMessage:
		elems = append(elems, v.Request, v.Options, v.Procedure)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case ResultMessage:
		elems = append(elems, v.CallRequest, v.Details)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case RegisterMessage:
		elems = append(elems, v.Request, v.Options, v.Procedure)
	case RegisteredMessage:
		elems = append(elems, v.RegisterRequest, v.Registration)
	case UnregisterMessage:
		elems = append(elems, v.Request, v.Registration)
	case UnregisteredMessage:
		elems = append(elems, v.UnregisterRequest)
	case InvocationMessage:
		elems = append(elems, v.Request, v.Registration, v.Details)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	case YieldMessage:
		elems = append(elems, v.InvocationRequest, v.Options)
		elems = appendTrailing(elems, v.Args, v.Kwargs)
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownMessageTag, m)
	}

	return wireJSON.Marshal(elems)
}

// appendTrailing appends args/kwargs, always dropping an empty kwargs,
// and dropping args as well when both are empty (a non-empty kwargs
// keeps args, even an empty one, in place) — matching "trailing empty-list/empty-map fields are
// omitted on serialization" (spec.md §4.1).
func appendTrailing(elems []interface{}, args List, kwargs Dictionary) []interface{} {
	if len(args) == 0 && len(kwargs) == 0 {
		return elems
	}
	elems = append(elems, args)
	if len(kwargs) > 0 {
		elems = append(elems, kwargs)
	}
	return elems
}

// Decode parses a WAMP wire message, returning an error wrapping
// errors.ErrUnknownMessageTag on an unknown tag, or errors.ErrMalformedMessage
// on bad JSON, wrong arity, or type mismatch (spec.md §4.1).
func Decode(data []byte) (Message, error) {
	var raw []json.RawMessage
	if err := wireJSON.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty message", errors.ErrMalformedMessage)
	}

	tagInt, err := decodeInt(raw[0])
	if err != nil {
		return nil, fmt.Errorf("%w: tag: %v", errors.ErrMalformedMessage, err)
	}
	tag := Tag(tagInt)
	rest := raw[1:]

	switch tag {
	case TagHello:
		return decodeHello(rest)
	case TagWelcome:
		return decodeWelcome(rest)
	case TagAbort:
		return decodeAbort(rest)
	case TagGoodbye:
		return decodeGoodbye(rest)
	case TagError:
		return decodeError(rest)
	case TagPublish:
		return decodePublish(rest)
	case TagPublished:
		return decodePublished(rest)
	case TagSubscribe:
		return decodeSubscribe(rest)
	case TagSubscribed:
		return decodeSubscribed(rest)
	case TagUnsubscribe:
		return decodeUnsubscribe(rest)
	case TagUnsubscribed:
		return decodeUnsubscribed(rest)
	case TagEvent:
		return decodeEvent(rest)
	case TagCall:
		return decodeCall(rest)
	case TagResult:
		return decodeResult(rest)
	case TagRegister:
		return decodeRegister(rest)
	case TagRegistered:
		return decodeRegistered(rest)
	case TagUnregister:
		return decodeUnregister(rest)
	case TagUnregistered:
		return decodeUnregistered(rest)
	case TagInvocation:
		return decodeInvocation(rest)
	case TagYield:
		return decodeYield(rest)
	default:
		return nil, fmt.Errorf("%w: tag %d", errors.ErrUnknownMessageTag, tagInt)
	}
}

func requireArity(rest []json.RawMessage, min, max int) error {
	if len(rest) < min || len(rest) > max {
		return fmt.Errorf("%w: expected %d-%d fields, got %d", errors.ErrMalformedMessage, min, max, len(rest))
	}
	return nil
}

func decodeInt(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := wireJSON.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

func decodeID(raw json.RawMessage) (ID, error) {
	v, err := decodeInt(raw)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

func decodeURI(raw json.RawMessage) (URI, error) {
	var s string
	if err := wireJSON.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return URI(s), nil
}

func decodeDict(raw json.RawMessage) (Dictionary, error) {
	d := Dictionary{}
	if err := wireJSON.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeListVal(raw json.RawMessage) (List, error) {
	var l List
	if err := wireJSON.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return l, nil
}

// trailingArgsKwargs decodes the optional args/kwargs tail starting at
// index `from` within rest.
func trailingArgsKwargs(rest []json.RawMessage, from int) (List, Dictionary, error) {
	var args List
	var kwargs Dictionary
	var err error
	if len(rest) > from {
		args, err = decodeListVal(rest[from])
		if err != nil {
			return nil, nil, fmt.Errorf("args: %w", err)
		}
	}
	if len(rest) > from+1 {
		kwargs, err = decodeDict(rest[from+1])
		if err != nil {
			return nil, nil, fmt.Errorf("kwargs: %w", err)
		}
	}
	return args, kwargs, nil
}

func decodeHello(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 1, 2); err != nil {
		return nil, err
	}
	realm, err := decodeURI(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: realm: %v", errors.ErrMalformedMessage, err)
	}
	var details Dictionary
	if len(rest) > 1 {
		if details, err = decodeDict(rest[1]); err != nil {
			return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
		}
	}
	return HelloMessage{Realm: realm, Details: details}, nil
}

func decodeWelcome(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 1, 2); err != nil {
		return nil, err
	}
	sid, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: session_id: %v", errors.ErrMalformedMessage, err)
	}
	var details Dictionary
	if len(rest) > 1 {
		if details, err = decodeDict(rest[1]); err != nil {
			return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
		}
	}
	return WelcomeMessage{SessionID: sid, Details: details}, nil
}

func decodeAbort(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 4); err != nil {
		return nil, err
	}
	details, err := decodeDict(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
	}
	reason, err := decodeURI(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: reason: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return AbortMessage{Details: details, Reason: reason, Args: args, Kwargs: kwargs}, nil
}

func decodeGoodbye(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 2); err != nil {
		return nil, err
	}
	details, err := decodeDict(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
	}
	reason, err := decodeURI(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: reason: %v", errors.ErrMalformedMessage, err)
	}
	return GoodbyeMessage{Details: details, Reason: reason}, nil
}

func decodeError(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 4, 6); err != nil {
		return nil, err
	}
	requestType, err := decodeInt(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request_type: %v", errors.ErrMalformedMessage, err)
	}
	request, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	details, err := decodeDict(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
	}
	errURI, err := decodeURI(rest[3])
	if err != nil {
		return nil, fmt.Errorf("%w: error: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return ErrorMessage{RequestType: Tag(requestType), Request: request, Details: details, Error: errURI, Args: args, Kwargs: kwargs}, nil
}

func decodePublish(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 3, 5); err != nil {
		return nil, err
	}
	request, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	options, err := decodeDict(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", errors.ErrMalformedMessage, err)
	}
	topic, err := decodeURI(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: topic: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return PublishMessage{Request: request, Options: options, Topic: topic, Args: args, Kwargs: kwargs}, nil
}

func decodePublished(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 2); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: publish_request: %v", errors.ErrMalformedMessage, err)
	}
	pub, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: publication: %v", errors.ErrMalformedMessage, err)
	}
	return PublishedMessage{PublishRequest: req, Publication: pub}, nil
}

func decodeSubscribe(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 3, 3); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	options, err := decodeDict(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", errors.ErrMalformedMessage, err)
	}
	topic, err := decodeURI(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: topic: %v", errors.ErrMalformedMessage, err)
	}
	return SubscribeMessage{Request: req, Options: options, Topic: topic}, nil
}

func decodeSubscribed(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 2); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe_request: %v", errors.ErrMalformedMessage, err)
	}
	sub, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: subscription: %v", errors.ErrMalformedMessage, err)
	}
	return SubscribedMessage{SubscribeRequest: req, Subscription: sub}, nil
}

func decodeUnsubscribe(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 2); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	sub, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: subscription: %v", errors.ErrMalformedMessage, err)
	}
	return UnsubscribeMessage{Request: req, Subscription: sub}, nil
}

func decodeUnsubscribed(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 1, 1); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: unsubscribe_request: %v", errors.ErrMalformedMessage, err)
	}
	return UnsubscribedMessage{UnsubscribeRequest: req}, nil
}

func decodeEvent(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 3, 5); err != nil {
		return nil, err
	}
	sub, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: subscription: %v", errors.ErrMalformedMessage, err)
	}
	pub, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: publication: %v", errors.ErrMalformedMessage, err)
	}
	details, err := decodeDict(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return EventMessage{Subscription: sub, Publication: pub, Details: details, Args: args, Kwargs: kwargs}, nil
}

func decodeCall(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 3, 5); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	options, err := decodeDict(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", errors.ErrMalformedMessage, err)
	}
	procedure, err := decodeURI(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: procedure: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return CallMessage{Request: req, Options: options, Procedure: procedure, Args: args, Kwargs: kwargs}, nil
}

func decodeResult(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 4); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: call_request: %v", errors.ErrMalformedMessage, err)
	}
	details, err := decodeDict(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return ResultMessage{CallRequest: req, Details: details, Args: args, Kwargs: kwargs}, nil
}

func decodeRegister(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 3, 3); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	options, err := decodeDict(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", errors.ErrMalformedMessage, err)
	}
	procedure, err := decodeURI(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: procedure: %v", errors.ErrMalformedMessage, err)
	}
	return RegisterMessage{Request: req, Options: options, Procedure: procedure}, nil
}

func decodeRegistered(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 2); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: register_request: %v", errors.ErrMalformedMessage, err)
	}
	reg, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: registration: %v", errors.ErrMalformedMessage, err)
	}
	return RegisteredMessage{RegisterRequest: req, Registration: reg}, nil
}

func decodeUnregister(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 2, 2); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	reg, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: registration: %v", errors.ErrMalformedMessage, err)
	}
	return UnregisterMessage{Request: req, Registration: reg}, nil
}

func decodeUnregistered(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 1, 1); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: unregister_request: %v", errors.ErrMalformedMessage, err)
	}
	return UnregisteredMessage{UnregisterRequest: req}, nil
}

func decodeInvocation(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 3, 5); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", errors.ErrMalformedMessage, err)
	}
	reg, err := decodeID(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: registration: %v", errors.ErrMalformedMessage, err)
	}
	details, err := decodeDict(rest[2])
	if err != nil {
		return nil, fmt.Errorf("%w: details: %v", errors.ErrMalformedMessage, err)
	}
	args, kwargs, err := trailingArgsKwargs(rest, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return InvocationMessage{Request: req, Registration: reg, Details: details, Args: args, Kwargs: kwargs}, nil
}

func decodeYield(rest []json.RawMessage) (Message, error) {
	if err := requireArity(rest, 1, 3); err != nil {
		return nil, err
	}
	req, err := decodeID(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: invocation_request: %v", errors.ErrMalformedMessage, err)
	}
	var options Dictionary
	if len(rest) > 1 {
		if options, err = decodeDict(rest[1]); err != nil {
			return nil, fmt.Errorf("%w: options: %v", errors.ErrMalformedMessage, err)
		}
	}
	args, kwargs, err := trailingArgsKwargs(rest, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return YieldMessage{InvocationRequest: req, Options: options, Args: args, Kwargs: kwargs}, nil
}
