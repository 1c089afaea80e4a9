package registry

import (
	"encoding/json"
	"testing"

	"github.com/zaymart/zaymart-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventWalletUnlocked, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"txn_id":"abc"}`)
	output, err := reg.Decode(enums.EventWalletUnlocked, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["txn_id"] != "abc" {
		t.Fatalf("unexpected output %+v", output)
	}

	if _, err := reg.Decode(enums.EventWalletUnlocked, 2, input); err == nil {
		t.Fatalf("expected unregistered version to fail")
	}
}
