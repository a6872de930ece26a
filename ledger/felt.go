// Package ledger 封装与链上游戏合约的交互：字段元素编解码、ABI解析、事件解码、
// JSON-RPC 读取接口以及交给外部钱包签名的写入调用。
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidFelt        = errors.New("无效的字段元素")
	ErrMissingFelt        = errors.New("缺少字段元素")
	ErrShortStringTooLong = errors.New("短字符串不能超过31个字符")
	ErrLongStringTooLong  = errors.New("字符串不能超过62个字符")
	ErrNotShortString     = errors.New("字段元素不是有效的短字符串")
)

// ShortStringMaxLen 单个字段元素最多容纳的ASCII字符数
const ShortStringMaxLen = 31

var (
	// FieldPrime Starknet 字段素数 P = 2^251 + 17*2^192 + 1
	FieldPrime = func() *big.Int {
		p := new(big.Int).Lsh(big.NewInt(1), 251)
		p.Add(p, new(big.Int).Lsh(big.NewInt(17), 192))
		return p.Add(p, big.NewInt(1))
	}()

	mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))
)

// ParseFelt 解析十六进制（0x前缀）或十进制表示的字段元素
func ParseFelt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	if s == "" {
		return nil, ErrInvalidFelt
	}

	x, ok := new(big.Int).SetString(s, base)
	if !ok || x.Sign() < 0 || x.Cmp(FieldPrime) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, s)
	}
	return x, nil
}

// FeltHex 规范十六进制表示：0x前缀、小写、无前导零
func FeltHex(x *big.Int) string {
	if x == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(x)
}

// FeltHexes 批量转换为规范十六进制
func FeltHexes(xs []*big.Int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = FeltHex(x)
	}
	return out
}

// NormalizeAddress 地址转为规范十六进制，无法解析时退化为小写字符串
func NormalizeAddress(addr string) string {
	if x, err := ParseFelt(addr); err == nil {
		return FeltHex(x)
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// SameAddress 比较两个地址。都能解析时按数值比较（忽略补零与大小写），否则忽略大小写比较字符串
func SameAddress(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	x, errA := ParseFelt(a)
	y, errB := ParseFelt(b)
	if errA == nil && errB == nil {
		return x.Cmp(y) == 0
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ShortenAddress 前6个字符 + "..." + 后4个字符
func ShortenAddress(hex string) string {
	head := hex
	if len(head) > 6 {
		head = head[:6]
	}
	tail := hex
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return head + "..." + tail
}

// Selector 计算 sn_keccak：Keccak-256 取低250位，用于事件键和入口函数选择器
func Selector(name string) *big.Int {
	x := new(big.Int).SetBytes(crypto.Keccak256([]byte(name)))
	return x.And(x, mask250)
}

// EncodeShortString 将不超过31个ASCII字符的字符串按大端打包进一个字段元素
func EncodeShortString(s string) (*big.Int, error) {
	if len(s) > ShortStringMaxLen {
		return nil, fmt.Errorf("%w: %q", ErrShortStringTooLong, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return nil, fmt.Errorf("%w: %q 含有非ASCII字符", ErrNotShortString, s)
		}
	}
	return new(big.Int).SetBytes([]byte(s)), nil
}

// DecodeShortString 字段元素还原为短字符串，前导零字节被忽略
func DecodeShortString(x *big.Int) (string, error) {
	if x == nil {
		return "", ErrMissingFelt
	}
	if x.Sign() < 0 {
		return "", ErrInvalidFelt
	}
	b := x.Bytes()
	if len(b) > ShortStringMaxLen {
		return "", fmt.Errorf("%w: %s", ErrNotShortString, FeltHex(x))
	}
	for _, c := range b {
		if c >= 0x80 {
			return "", fmt.Errorf("%w: %s", ErrNotShortString, FeltHex(x))
		}
	}
	return string(b), nil
}

// FeltText 名称类字段的展示文本：可打印的UTF-8字节原样返回，否则用十六进制
func FeltText(x *big.Int) string {
	if x == nil {
		return ""
	}
	if x.Sign() >= 0 {
		b := x.Bytes()
		if utf8.Valid(b) && printable(string(b)) {
			return string(b)
		}
	}
	return FeltHex(x)
}

func printable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// SplitLongString 按31个字符切分
func SplitLongString(s string) []string {
	var parts []string
	for len(s) > ShortStringMaxLen {
		parts = append(parts, s[:ShortStringMaxLen])
		s = s[ShortStringMaxLen:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// EncodeTwoFelts 将不超过62个字符的字符串拆成两个字段元素，不足时第二个为0
func EncodeTwoFelts(s string) ([2]*big.Int, error) {
	out := [2]*big.Int{big.NewInt(0), big.NewInt(0)}
	parts := SplitLongString(s)
	if len(parts) > 2 {
		return out, fmt.Errorf("%w: %d", ErrLongStringTooLong, len(s))
	}
	for i, part := range parts {
		x, err := EncodeShortString(part)
		if err != nil {
			return out, err
		}
		out[i] = x
	}
	return out, nil
}

// DecodeTwoFelts 两个短字符串拼接还原
func DecodeTwoFelts(x, y *big.Int) (string, error) {
	a, err := DecodeShortString(x)
	if err != nil {
		return "", err
	}
	b, err := DecodeShortString(y)
	if err != nil {
		return "", err
	}
	return a + b, nil
}

// EncodeGameID 游戏ID编码：十进制或0x十六进制按数值，其余按短字符串
func EncodeGameID(id string) (*big.Int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: 游戏ID为空", ErrInvalidFelt)
	}
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") || isDecimal(id) {
		return ParseFelt(id)
	}
	return EncodeShortString(id)
}

func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
