package timer

import "fmt"

// FormatClock 将秒数格式化为 MM:SS 时钟字符串
// FormatClock renders a non-negative number of seconds as a zero-padded MM:SS clock string.
// Minutes grow past two digits only for inputs above 5999 seconds; callers are
// expected to bound input to realistic session lengths.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ParseClock 将 MM:SS 解析回秒数，用于往返校验
// ParseClock decodes an MM:SS string back to seconds.
func ParseClock(s string) (int, error) {
	var minutes, secs int
	if _, err := fmt.Sscanf(s, "%d:%d", &minutes, &secs); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if minutes < 0 || secs < 0 || secs > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return minutes*60 + secs, nil
}
