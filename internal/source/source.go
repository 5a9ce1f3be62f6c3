package source

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// ReadLines 按行读取并去掉空行。
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// 账号文件缺失或为空都算错误。
func ReadAccounts(path string) ([]string, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("read accounts %s: %w", path, ErrNoAccounts)
	}
	return lines, nil
}

var ErrNoAccounts = errors.New("no accounts in file")

// Missing 表示文件不存在（区别于空文件）。
type ProxyList struct {
	Addrs   []string
	Missing bool
}

// ReadProxies 文件缺失或为空不报错，只返回真正的 I/O 错误。
func ReadProxies(path string) (ProxyList, error) {
	if strings.TrimSpace(path) == "" {
		return ProxyList{Missing: true}, nil
	}
	lines, err := ReadLines(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ProxyList{Missing: true}, nil
		}
		return ProxyList{}, fmt.Errorf("read proxies %s: %w", path, err)
	}
	addrs := make([]string, 0, len(lines))
	for _, l := range lines {
		addrs = append(addrs, NormalizeProxy(l))
	}
	return ProxyList{Addrs: addrs}, nil
}

func (l ProxyList) Pick(rng *rand.Rand) string {
	return PickProxy(l.Addrs, rng)
}

func PickProxy(addrs []string, rng *rand.Rand) string {
	if len(addrs) == 0 {
		return ""
	}
	if rng == nil {
		return addrs[rand.Intn(len(addrs))]
	}
	return addrs[rng.Intn(len(addrs))]
}

// host:port 补上 http:// 前缀。
func NormalizeProxy(addr string) string {
	v := strings.TrimSpace(addr)
	if v == "" {
		return ""
	}
	if !strings.Contains(v, "://") {
		v = "http://" + v
	}
	return v
}
