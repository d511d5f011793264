package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncodeInvocation(t *testing.T) {
	tests := []struct {
		name   string
		hub    string
		method string
		args   []json.RawMessage
		id     int64
		want   string
	}{
		{
			name:   "with_args",
			hub:    "chat",
			method: "Send",
			args:   []json.RawMessage{json.RawMessage(`"hello"`), json.RawMessage(`42`)},
			id:     7,
			want:   `{"H":"chat","M":"Send","A":["hello",42],"I":7}`,
		},
		{
			name:   "empty_args",
			hub:    "chat",
			method: "Ping",
			args:   []json.RawMessage{},
			id:     0,
			want:   `{"H":"chat","M":"Ping","A":[],"I":0}`,
		},
		{
			name:   "nil_args_still_emits_array",
			hub:    "presence",
			method: "Leave",
			args:   nil,
			id:     3,
			want:   `{"H":"presence","M":"Leave","A":[],"I":3}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeInvocation(tc.hub, tc.method, tc.args, tc.id)
			if err != nil {
				t.Fatalf("EncodeInvocation() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("EncodeInvocation() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDecodeFrameKeepalive(t *testing.T) {
	f := DecodeFrame([]byte(`{}`))
	if f.Kind != FrameKeepalive {
		t.Fatalf("Kind = %v, want keepalive", f.Kind)
	}
	if len(f.Messages) != 0 || f.ID != 0 {
		t.Errorf("keepalive frame carries data: %+v", f)
	}
}

func TestDecodeFramePushBatch(t *testing.T) {
	raw := `{"C":"d-ABC,0|1","M":[{"H":"chat","M":"addMessage","A":["alice","hi"]},{"H":"presence","M":"joined","A":[]}]}`

	f := DecodeFrame([]byte(raw))
	if f.Kind != FramePush {
		t.Fatalf("Kind = %v, want push", f.Kind)
	}
	if len(f.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(f.Messages))
	}
	if f.Messages[0].Hub != "chat" || f.Messages[0].Method != "addMessage" {
		t.Errorf("Messages[0] = %+v", f.Messages[0])
	}
	if len(f.Messages[0].Args) != 2 {
		t.Errorf("len(Messages[0].Args) = %d, want 2", len(f.Messages[0].Args))
	}
	if f.Messages[1].Hub != "presence" || len(f.Messages[1].Args) != 0 {
		t.Errorf("Messages[1] = %+v", f.Messages[1])
	}
}

func TestDecodeFrameResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantID    int64
		wantErr   string
		wantEmpty bool
	}{
		{
			name:   "numeric_id_with_result",
			raw:    `{"I":7,"R":{"ok":true}}`,
			wantID: 7,
		},
		{
			name:   "string_id",
			raw:    `{"I":"12","R":"pong"}`,
			wantID: 12,
		},
		{
			name:    "error_response",
			raw:     `{"I":3,"E":"hub method failed"}`,
			wantID:  3,
			wantErr: "hub method failed",
		},
		{
			name:      "no_result_no_error",
			raw:       `{"I":0}`,
			wantID:    0,
			wantEmpty: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := DecodeFrame([]byte(tc.raw))
			if f.Kind != FrameResponse {
				t.Fatalf("Kind = %v, want response", f.Kind)
			}
			if f.ID != tc.wantID {
				t.Errorf("ID = %d, want %d", f.ID, tc.wantID)
			}
			if f.Error != tc.wantErr {
				t.Errorf("Error = %q, want %q", f.Error, tc.wantErr)
			}
			if tc.wantEmpty && len(f.Result) != 0 {
				t.Errorf("Result = %s, want empty", f.Result)
			}
		})
	}
}

func TestDecodeFrameOther(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"init_frame", `{"C":"s-0,0","S":1,"M":[]}`},
		{"empty_message_array", `{"M":[]}`},
		{"groups_token", `{"C":"d-1","G":"token"}`},
		{"not_json", `hello world`},
		{"non_numeric_id", `{"I":"abc"}`},
		{"json_array", `[1,2,3]`},
		{"empty_payload", ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := DecodeFrame([]byte(tc.raw))
			if f.Kind != FrameOther {
				t.Errorf("Kind = %v, want other", f.Kind)
			}
		})
	}
}

func TestConnectionData(t *testing.T) {
	tests := []struct {
		name string
		hubs []string
		want string
	}{
		{"single", []string{"chat"}, `[{"name":"chat"}]`},
		{"multiple", []string{"chat", "presence"}, `[{"name":"chat"},{"name":"presence"}]`},
		{"none", nil, `[]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConnectionData(tc.hubs)
			if err != nil {
				t.Fatalf("ConnectionData() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("ConnectionData() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNegotiateResponseKeepAliveOptional(t *testing.T) {
	var withKA NegotiateResponse
	if err := json.Unmarshal([]byte(`{"TryWebSockets":true,"ConnectionToken":"T","ConnectionId":"C","KeepAliveTimeout":20}`), &withKA); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if withKA.KeepAliveTimeout == nil || *withKA.KeepAliveTimeout != 20 {
		t.Errorf("KeepAliveTimeout = %v, want 20", withKA.KeepAliveTimeout)
	}

	var withoutKA NegotiateResponse
	if err := json.Unmarshal([]byte(`{"TryWebSockets":true,"ConnectionToken":"T","ConnectionId":"C"}`), &withoutKA); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if withoutKA.KeepAliveTimeout != nil {
		t.Errorf("KeepAliveTimeout = %v, want nil", *withoutKA.KeepAliveTimeout)
	}
}
