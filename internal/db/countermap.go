package db

import (
	"database/sql/driver"
	"encoding/json"
)

// CounterMap 是存储为 JSON 的计数映射（例如按小时/按浏览器的浏览分布）。
// 读取时容忍字符串或对象两种存储形态，解析失败时回退到空映射而不是报错。
type CounterMap map[string]int64

// Value 序列化为 JSON 字符串写入数据库。
func (m CounterMap) Value() (driver.Value, error) {
	if m == nil {
		m = CounterMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 从数据库读取 JSON，无法解析时置为空映射。
func (m *CounterMap) Scan(value interface{}) error {
	*m = CounterMap{}
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}

	if len(raw) == 0 {
		return nil
	}

	var parsed map[string]int64
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// 历史数据里可能是双重编码的字符串
		var nested string
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(nested), &parsed); err != nil {
			return nil
		}
	}

	if parsed != nil {
		*m = parsed
	}
	return nil
}

// Bump 将指定键的计数加一。
func (m CounterMap) Bump(key string) {
	m[key] = m[key] + 1
}
