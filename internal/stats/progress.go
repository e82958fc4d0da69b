package stats

import (
	"regexp"
	"strconv"

	"github.com/verte-zerg/lstmtune/internal/model"
)

// Matches lstmtraining progress lines; older releases print "char train"
// and "word train" instead of BCER/BWER.
var progressPattern = regexp.MustCompile(`(?i)At iteration (\d+)/(\d+)/(\d+), mean rms=([\d.]+)%, delta=([\d.]+)%, (?:BCER|char) train=([\d.]+)%, (?:BWER|word) train=([\d.]+)%(?:, skip ratio=([\d.]+)%)?`)

// ParseProgress extracts a progress report from one lstmtraining line.
func ParseProgress(line string) (model.Progress, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return model.Progress{}, false
	}
	var p model.Progress
	p.Iteration, _ = strconv.Atoi(m[1])
	p.LearningIteration, _ = strconv.Atoi(m[2])
	p.TrainingIteration, _ = strconv.Atoi(m[3])
	p.MeanRMS, _ = strconv.ParseFloat(m[4], 64)
	p.Delta, _ = strconv.ParseFloat(m[5], 64)
	p.BCER, _ = strconv.ParseFloat(m[6], 64)
	p.BWER, _ = strconv.ParseFloat(m[7], 64)
	if m[8] != "" {
		p.SkipRatio, _ = strconv.ParseFloat(m[8], 64)
	}
	return p, true
}
