package wamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"hello", HelloMessage{Realm: "com.battlerealm.realm", Details: Dictionary{"agent": "battlerealm-1.0"}}},
		{"hello no details", HelloMessage{Realm: "com.battlerealm.realm"}},
		{"welcome", WelcomeMessage{SessionID: 42, Details: Dictionary{"roles": map[string]interface{}{"broker": map[string]interface{}{}}}}},
		{"abort", AbortMessage{Details: Dictionary{}, Reason: "no_such_realm"}},
		{"abort with args", AbortMessage{Details: Dictionary{}, Reason: "protocol_violation", Args: List{"bad frame"}}},
		{"goodbye", GoodbyeMessage{Details: Dictionary{}, Reason: "wamp.close.normal"}},
		{"error", ErrorMessage{RequestType: TagCall, Request: 7, Details: Dictionary{}, Error: "com.battlerealm.not_found"}},
		{"error with kwargs", ErrorMessage{
			RequestType: TagCall, Request: 7, Details: Dictionary{}, Error: "com.battlerealm.not_found",
			Args: List{"x"}, Kwargs: Dictionary{"why": "missing"},
		}},
		{"publish", PublishMessage{Request: 1, Options: Dictionary{}, Topic: "com.battlerealm.ping"}},
		{"publish ack", PublishMessage{Request: 1, Options: Dictionary{"acknowledge": true}, Topic: "com.battlerealm.ping", Args: List{"hi"}}},
		{"published", PublishedMessage{PublishRequest: 1, Publication: 2}},
		{"subscribe", SubscribeMessage{Request: 1, Options: Dictionary{}, Topic: "com.battlerealm.ping"}},
		{"subscribed", SubscribedMessage{SubscribeRequest: 1, Subscription: 9}},
		{"unsubscribe", UnsubscribeMessage{Request: 1, Subscription: 9}},
		{"unsubscribed", UnsubscribedMessage{UnsubscribeRequest: 1}},
		{"event", EventMessage{Subscription: 9, Publication: 2, Details: Dictionary{}, Args: List{"hi"}}},
		{"call", CallMessage{Request: 1, Options: Dictionary{}, Procedure: "com.battlerealm.proposed_battle.propose"}},
		{"result", ResultMessage{CallRequest: 1, Details: Dictionary{}}},
		{"result progress", ResultMessage{CallRequest: 1, Details: Dictionary{"progress": true}, Args: List{float64(1)}}},
		{"register", RegisterMessage{Request: 1, Options: Dictionary{}, Procedure: "com.battlerealm.proposed_battle.propose"}},
		{"registered", RegisteredMessage{RegisterRequest: 1, Registration: 5}},
		{"unregister", UnregisterMessage{Request: 1, Registration: 5}},
		{"unregistered", UnregisteredMessage{UnregisterRequest: 1}},
		{"invocation", InvocationMessage{Request: 1, Registration: 5, Details: Dictionary{}}},
		{"yield", YieldMessage{InvocationRequest: 1, Options: Dictionary{}}},
		{"yield with args", YieldMessage{InvocationRequest: 1, Options: Dictionary{}, Args: List{float64(1), "two"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.msg)
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)

			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte(`[9999]`))
	require.Error(t, err)
}

func TestDecodeEmptyMessage(t *testing.T) {
	_, err := Decode([]byte(`[]`))
	require.Error(t, err)
}

func TestDecodeWrongArity(t *testing.T) {
	// HELLO requires at least 1 field (realm) after the tag.
	_, err := Decode([]byte(`[1]`))
	require.Error(t, err)
}

func TestDecodeTypeMismatch(t *testing.T) {
	// WELCOME session_id must be numeric, not a string.
	_, err := Decode([]byte(`[2,"not-a-number",{}]`))
	require.Error(t, err)
}

func TestEncodeOmitsTrailingEmptyFields(t *testing.T) {
	encoded, err := Encode(PublishMessage{Request: 1, Options: Dictionary{}, Topic: "com.x.y"})
	require.NoError(t, err)
	assert.JSONEq(t, `[16,1,{},"com.x.y"]`, string(encoded))
}

func TestEncodeKeepsArgsWhenKwargsEmpty(t *testing.T) {
	encoded, err := Encode(PublishMessage{Request: 1, Options: Dictionary{}, Topic: "com.x.y", Args: List{"a"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[16,1,{},"com.x.y",["a"]]`, string(encoded))
}
