package simulate

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"

	"yieldSpace/internal/config"
	"yieldSpace/internal/model"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAccounts converts a name to hex address book into addresses.
func ParseAccounts(inputs map[string]string) (map[string]common.Address, error) {
	accounts := make(map[string]common.Address, len(inputs))
	for name, input := range inputs {
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", name, err)
		}
		accounts[strings.ToLower(strings.TrimSpace(name))] = addr
	}
	return accounts, nil
}

// resolve accepts an account name or a hex address.
func resolve(accounts map[string]common.Address, input string) (common.Address, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return common.Address{}, fmt.Errorf("address is required")
	}
	if addr, ok := accounts[key]; ok {
		return addr, nil
	}
	return ParseAddress(input)
}

// decodeOperation reads one input line. Amounts may be JSON strings or numbers
// and timestamps may be unix seconds or RFC3339 strings.
func decodeOperation(raw []byte) (model.Operation, error) {
	if !gjson.ValidBytes(raw) {
		return model.Operation{}, fmt.Errorf("invalid json")
	}
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return model.Operation{}, fmt.Errorf("operation must be a json object")
	}

	op := model.Operation{
		Op:      strings.ToLower(strings.TrimSpace(res.Get("op").String())),
		From:    res.Get("from").String(),
		To:      res.Get("to").String(),
		Amount:  res.Get("amount").String(),
		Preview: res.Get("preview").Bool(),
		Asset:   strings.ToLower(res.Get("asset").String()),
		Seconds: res.Get("seconds").Uint(),
	}
	if op.Op == "" {
		return model.Operation{}, fmt.Errorf("missing op")
	}

	if ts := res.Get("timestamp"); ts.Exists() {
		if ts.Type == gjson.String {
			parsed, err := config.ParseTimestamp(ts.String())
			if err != nil {
				return model.Operation{}, fmt.Errorf("timestamp: %w", err)
			}
			op.Timestamp = parsed
		} else {
			op.Timestamp = ts.Uint()
		}
	}
	return op, nil
}
