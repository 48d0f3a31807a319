package bridge

import (
	"regexp"
	"strconv"
	"strings"
)

const runningCap = 99

var (
	explicitPercent = regexp.MustCompile(`progress\s*=\s*(\d{1,3})\s*%`)
	barePercent     = regexp.MustCompile(`(?:^|\s)(\d{1,3})(?:\.\d+)?\s*%`)
	ffmpegTime      = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	ffmpegDuration  = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

type phaseKeyword struct {
	match   string
	message string
}

var phaseKeywords = []phaseKeyword{
	{"whisper_init_from_file", "loading model"},
	{"whisper_model_load", "loading model"},
	{"system_info", "initializing"},
	{"main: processing", "transcribing"},
	{"output_srt", "writing captions"},
	{"Input #0", "reading input"},
	{"Output #0", "writing audio"},
	{"Stream mapping", "converting"},
}

// progressParser turns unstructured process output into monotonic percentages.
// It never reports more than runningCap; 100 is reserved for successful exit.
type progressParser struct {
	duration float64
	last     int
	message  string
}

func newProgressParser(durationHint float64) *progressParser {
	return &progressParser{duration: durationHint}
}

// parse returns the updated percent and message, and whether anything changed
func (p *progressParser) parse(line string) (int, string, bool) {
	percent, msg := -1, ""

	if m := ffmpegDuration.FindStringSubmatch(line); m != nil && p.duration <= 0 {
		p.duration = clockSeconds(m[1], m[2], m[3])
	}

	switch {
	case explicitPercent.MatchString(line):
		percent, _ = strconv.Atoi(explicitPercent.FindStringSubmatch(line)[1])
	case ffmpegTime.MatchString(line) && p.duration > 0:
		m := ffmpegTime.FindStringSubmatch(line)
		percent = int(clockSeconds(m[1], m[2], m[3]) / p.duration * 100)
	case barePercent.MatchString(line):
		percent, _ = strconv.Atoi(barePercent.FindStringSubmatch(line)[1])
	}

	for _, kw := range phaseKeywords {
		if strings.Contains(line, kw.match) {
			msg = kw.message
			break
		}
	}

	changed := false
	if percent > p.last {
		if percent > runningCap {
			percent = runningCap
		}
		if percent != p.last {
			p.last = percent
			changed = true
		}
	}
	if msg != "" && msg != p.message {
		p.message = msg
		changed = true
	}

	return p.last, p.message, changed
}

func clockSeconds(h, m, s string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.ParseFloat(s, 64)
	return float64(hh*3600+mm*60) + ss
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
