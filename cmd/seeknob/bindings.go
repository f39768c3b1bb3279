package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// BindingTable maps (device name, key code) to a logical action.
// It is built once at startup and is read-only afterwards, so listener
// goroutines share it without locking.
type BindingTable struct {
	byKey   map[bindingKey]Action
	entries []BindingEntry
}

type bindingKey struct {
	device string
	code   uint16
}

// BindingEntry is one resolved key mapping, used for listings.
type BindingEntry struct {
	Action string
	Device string
	Code   uint16
}

// NewBindingTable parses key mappings of the form "<device>.<KEY_SYMBOL>".
//
// It fails on an unknown action name, a device missing from devices, an
// unknown key symbol, or a (device, key) pair bound to two actions.
func NewBindingTable(mappings map[string]StringList, devices map[string]string) (*BindingTable, error) {
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &BindingTable{byKey: make(map[bindingKey]Action)}
	owner := make(map[bindingKey]string)

	for _, name := range names {
		action, err := ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("key_mappings: %w", err)
		}

		for _, value := range mappings[name] {
			device, code, err := parseBindingValue(value)
			if err != nil {
				return nil, fmt.Errorf("key_mappings.%s: %w", name, err)
			}
			if _, ok := devices[device]; !ok {
				return nil, fmt.Errorf("key_mappings.%s: unknown device %q", name, device)
			}

			k := bindingKey{device: device, code: code}
			if prev, dup := owner[k]; dup && prev != name {
				return nil, fmt.Errorf("key_mappings: %s.%s is bound to both %s and %s", device, keyName(code), prev, name)
			}
			owner[k] = name
			t.byKey[k] = action
			t.entries = append(t.entries, BindingEntry{Action: name, Device: device, Code: code})
		}
	}

	return t, nil
}

// Resolve returns the action bound to code on device, if any.
func (t *BindingTable) Resolve(device string, code uint16) (Action, bool) {
	a, ok := t.byKey[bindingKey{device: device, code: code}]
	return a, ok
}

// Entries returns every mapping in action name order.
func (t *BindingTable) Entries() []BindingEntry {
	return t.entries
}

// Len returns the number of bound keys.
func (t *BindingTable) Len() int {
	return len(t.byKey)
}

// parseBindingValue splits "<device>.<symbol>" at the last dot.
func parseBindingValue(value string) (string, uint16, error) {
	i := strings.LastIndex(value, ".")
	if i <= 0 || i == len(value)-1 {
		return "", 0, fmt.Errorf("invalid mapping %q (want <device>.<KEY_NAME>)", value)
	}
	device, symbol := value[:i], value[i+1:]

	code, err := parseKeySymbol(symbol)
	if err != nil {
		return "", 0, err
	}
	return device, code, nil
}

// parseKeySymbol accepts a kernel key name (KEY_VOLUMEUP, BTN_0) or a decimal code.
func parseKeySymbol(symbol string) (uint16, error) {
	if code, ok := evdev.KEYFromString[strings.ToUpper(symbol)]; ok {
		return uint16(code), nil
	}
	if n, err := strconv.ParseUint(symbol, 10, 16); err == nil {
		return uint16(n), nil
	}
	return 0, fmt.Errorf("unknown key symbol %q", symbol)
}

// keyName renders a key code for logs.
func keyName(code uint16) string {
	if name, ok := evdev.KEYToString[evdev.EvCode(code)]; ok {
		return name
	}
	return strconv.Itoa(int(code))
}
