package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrSchemaUnavailable 无法取得合约ABI，或ABI中没有任何事件定义
var ErrSchemaUnavailable = errors.New("合约ABI不可用")

// MemberKind 事件成员位于 keys 还是 data
type MemberKind string

const (
	MemberKey  MemberKind = "key"
	MemberData MemberKind = "data"
)

// EventMember 事件成员
type EventMember struct {
	Name string
	Type string
	Kind MemberKind
}

// EventSpec 一个可解码的事件定义
type EventSpec struct {
	Name     string   // ABI中的完整路径，例如 contracts::MafiaGame::GameCreated
	Variant  string   // 事件枚举的变体名，用于计算选择器
	Selector *big.Int // sn_keccak(Variant)
	Members  []EventMember
}

// Schema 按选择器索引的事件定义
type Schema struct {
	events map[string]*EventSpec
}

// Lookup 根据 keys[0] 查找事件定义
func (s *Schema) Lookup(selector *big.Int) (*EventSpec, bool) {
	if s == nil || selector == nil {
		return nil, false
	}
	spec, ok := s.events[FeltHex(selector)]
	return spec, ok
}

// Len 事件定义数量
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

type abiMember struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind string `json:"kind"`
}

type abiEntry struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Members  []abiMember `json:"members"`
	Variants []abiMember `json:"variants"`
	Keys     []abiMember `json:"keys"`
	Data     []abiMember `json:"data"`
}

// ParseSchema 解析合约ABI中的事件定义。支持 Cairo 1 的 struct/enum 事件以及旧版 keys/data 形式；
// Sierra 合约的 ABI 以JSON字符串形式返回，这里一并处理
func ParseSchema(raw []byte) (*Schema, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrSchemaUnavailable
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
		}
		return ParseSchema([]byte(inner))
	}

	var entries []abiEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}

	structs := make(map[string]*EventSpec)
	schema := &Schema{events: make(map[string]*EventSpec)}

	for _, entry := range entries {
		if entry.Type != "event" {
			continue
		}
		switch entry.Kind {
		case "struct":
			spec := &EventSpec{Name: entry.Name, Variant: shortName(entry.Name)}
			for _, m := range entry.Members {
				kind := MemberData
				if m.Kind == string(MemberKey) {
					kind = MemberKey
				}
				spec.Members = append(spec.Members, EventMember{Name: m.Name, Type: m.Type, Kind: kind})
			}
			structs[entry.Name] = spec
		case "":
			// 旧版ABI：keys 与 data 分开列出
			spec := &EventSpec{Name: entry.Name, Variant: shortName(entry.Name)}
			for _, m := range entry.Keys {
				spec.Members = append(spec.Members, EventMember{Name: m.Name, Type: m.Type, Kind: MemberKey})
			}
			for _, m := range entry.Data {
				spec.Members = append(spec.Members, EventMember{Name: m.Name, Type: m.Type, Kind: MemberData})
			}
			schema.add(spec)
		}
	}

	for _, entry := range entries {
		if entry.Type != "event" || entry.Kind != "enum" {
			continue
		}
		for _, v := range entry.Variants {
			if v.Kind != "nested" {
				continue
			}
			target, ok := structs[v.Type]
			if !ok {
				continue
			}
			spec := *target
			spec.Variant = v.Name
			schema.add(&spec)
		}
	}

	// 没有被事件枚举引用的结构体事件按自身名称登记
	for _, spec := range structs {
		if _, ok := schema.Lookup(Selector(spec.Variant)); !ok {
			schema.add(spec)
		}
	}

	if schema.Len() == 0 {
		return nil, fmt.Errorf("%w: 未找到事件定义", ErrSchemaUnavailable)
	}
	return schema, nil
}

func (s *Schema) add(spec *EventSpec) {
	spec.Selector = Selector(spec.Variant)
	s.events[FeltHex(spec.Selector)] = spec
}

func shortName(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}

// typeWidth 类型占用的字段元素个数
func typeWidth(t string) (int, error) {
	switch shortName(t) {
	case "felt252", "felt", "ContractAddress", "ClassHash", "EthAddress", "bytes31", "bool",
		"u8", "u16", "u32", "u64", "u128", "i8", "i16", "i32", "i64", "i128":
		return 1, nil
	case "u256":
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}
