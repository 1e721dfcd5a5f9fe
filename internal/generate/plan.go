package generate

import (
	"regexp"
	"strconv"
	"strings"
)

const defaultTopicQuestions = 5

var questionCountRe = regexp.MustCompile(`\((\d+)\s+questions?`)

// planTopic is one entry of a numbered topic plan.
type planTopic struct {
	name string
	// details holds the "-" bullet lines under the topic.
	details string
	// count is the planned number of questions.
	count int
}

// parsePlan reads numbered "1. **Topic**" lines and the bullets under them.
func parsePlan(plan string) []planTopic {
	var (
		out     []planTopic
		cur     *planTopic
		details []string
	)
	flush := func() {
		if cur != nil {
			cur.details = strings.Join(details, "\n")
			out = append(out, *cur)
		}
	}
	for _, line := range strings.Split(plan, "\n") {
		t := strings.TrimSpace(line)
		if t != "" && t[0] >= '0' && t[0] <= '9' && strings.Contains(t, "**") {
			flush()
			cur = &planTopic{name: topicName(t), count: defaultTopicQuestions}
			if m := questionCountRe.FindStringSubmatch(t); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					cur.count = n
				}
			}
			details = nil
			continue
		}
		if cur != nil && strings.HasPrefix(t, "-") {
			details = append(details, t)
		}
	}
	flush()
	return out
}

func topicName(line string) string {
	if start := strings.Index(line, "**"); start >= 0 {
		if end := strings.Index(line[start+2:], "**"); end >= 0 {
			return strings.TrimSpace(line[start+2 : start+2+end])
		}
	}
	if _, rest, ok := strings.Cut(line, "."); ok {
		line = rest
	}
	return strings.Trim(strings.TrimSpace(line), "*")
}
