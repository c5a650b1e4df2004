package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/pkg/config"
)

// WorkloadCalculator derives wellness metrics from schedule assignments and a
// workload policy. It is pure computation: no store or network access, and the
// same inputs always produce the same snapshot.
type WorkloadCalculator struct {
	cfg    config.WellnessConfig
	logger *zap.Logger
}

// NewWorkloadCalculator constructs a calculator bound to the threshold table.
func NewWorkloadCalculator(cfg config.WellnessConfig, logger *zap.Logger) *WorkloadCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadCalculator{cfg: cfg, logger: logger}
}

type slot struct {
	start int // minutes from midnight
	end   int
	prep  int
}

// Calculate computes the wellness summary for one teacher and date from the
// week's schedule entries and the teacher's policy. Entries whose stored times
// fail to parse are skipped, counted in SkippedEntries, and logged.
func (c *WorkloadCalculator) Calculate(teacherID string, date time.Time, entries []models.ScheduleEntry, policy models.WorkloadPolicy) *models.WorkloadSummary {
	byDay := make(map[int][]slot)
	skipped := 0
	lateEvening := 0

	for _, entry := range entries {
		start, err := parseClock(entry.StartTime)
		if err != nil {
			skipped++
			c.logger.Warn("skipping schedule entry with malformed start time",
				zap.String("teacher_id", teacherID), zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		end, err := parseClock(entry.EndTime)
		if err != nil || end <= start {
			skipped++
			c.logger.Warn("skipping schedule entry with malformed end time",
				zap.String("teacher_id", teacherID), zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		prep := entry.PrepMinutes
		if prep <= 0 {
			prep = c.cfg.DefaultPrepMinutes
		}
		if start >= c.cfg.LateEveningHour*60 {
			lateEvening++
		}
		byDay[entry.DayOfWeek] = append(byDay[entry.DayOfWeek], slot{start: start, end: end, prep: prep})
	}

	daily := make([]models.DailyLoad, 0, len(byDay))
	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	totalPeriods := 0
	teachingHours := 0.0
	prepHours := 0.0
	weekConsecutiveMax := 0
	weekGapMinutes := 0
	maxDailyPeriods := 0
	minDailyPeriods := math.MaxInt32

	for _, day := range days {
		load := c.dayLoad(day, byDay[day])
		daily = append(daily, load)

		totalPeriods += load.Periods
		teachingHours += load.TeachingHours
		prepHours += load.PrepHours
		weekGapMinutes += load.GapMinutes
		if load.ConsecutiveMax > weekConsecutiveMax {
			weekConsecutiveMax = load.ConsecutiveMax
		}
		if load.Periods > maxDailyPeriods {
			maxDailyPeriods = load.Periods
		}
		if load.Periods < minDailyPeriods {
			minDailyPeriods = load.Periods
		}
	}
	if len(days) == 0 {
		minDailyPeriods = 0
	}

	workloadPct := 0.0
	if policy.MaxPeriodsPerWeek > 0 {
		workloadPct = float64(totalPeriods) / float64(policy.MaxPeriodsPerWeek) * 100
	}

	indicators := models.StressIndicators{
		Overwork:           c.overworkIndicator(workloadPct),
		ConsecutivePeriods: c.consecutiveStress(weekConsecutiveMax, policy),
		Gaps:               c.gapStress(weekGapMinutes),
		Imbalance:          c.imbalanceStress(len(days), maxDailyPeriods, minDailyPeriods),
	}

	overall := math.Round(c.cfg.OverworkWeight*indicators.Overwork +
		c.cfg.ConsecutiveWeight*indicators.ConsecutivePeriods +
		c.cfg.GapWeight*indicators.Gaps +
		c.cfg.ImbalanceWeight*indicators.Imbalance)
	overall = clamp(overall, 0, 100)
	wellness := math.Max(0, 100-overall)

	snapshot := models.WellnessSnapshot{
		TeacherID:             teacherID,
		MetricDate:            date.UTC().Truncate(24 * time.Hour),
		TeachingHours:         round2(teachingHours),
		PrepHours:             round2(prepHours),
		TotalWorkHours:        round2(teachingHours + prepHours),
		ConsecutivePeriodsMax: weekConsecutiveMax,
		GapsMinutes:           weekGapMinutes,
		StressScore:           overall,
		WellnessScore:         wellness,
	}

	return &models.WorkloadSummary{
		TeacherID:          teacherID,
		MetricDate:         snapshot.MetricDate,
		Snapshot:           snapshot,
		Risk:               c.riskLevel(wellness, overall),
		TotalPeriods:       totalPeriods,
		WorkloadPercentage: workloadPct,
		Indicators:         indicators,
		Daily:              daily,
		LateEveningCount:   lateEvening,
		SkippedEntries:     skipped,
	}
}

func (c *WorkloadCalculator) dayLoad(day int, slots []slot) models.DailyLoad {
	sort.Slice(slots, func(i, j int) bool { return slots[i].start < slots[j].start })

	load := models.DailyLoad{DayOfWeek: day, Periods: len(slots)}
	run := 1
	for i, s := range slots {
		load.TeachingHours += float64(s.end-s.start) / 60
		load.PrepHours += float64(s.prep) / 60
		if s.start >= c.cfg.LateEveningHour*60 {
			load.LateEvening++
		}
		if i == 0 {
			continue
		}
		gap := s.start - slots[i-1].end
		if gap < c.cfg.ConsecutiveWindowMinutes {
			run++
		} else {
			run = 1
		}
		// Gaps at exactly the window are neither consecutive nor disruptive.
		if gap > c.cfg.ConsecutiveWindowMinutes {
			load.GapMinutes += gap
		}
		if run > load.ConsecutiveMax {
			load.ConsecutiveMax = run
		}
	}
	if len(slots) > 0 && load.ConsecutiveMax == 0 {
		load.ConsecutiveMax = 1
	}
	load.TeachingHours = round2(load.TeachingHours)
	load.PrepHours = round2(load.PrepHours)
	return load
}

func (c *WorkloadCalculator) overworkIndicator(workloadPct float64) float64 {
	switch {
	case workloadPct > c.cfg.OverworkCriticalPct:
		return 100
	case workloadPct > c.cfg.OverworkHighPct:
		return 70
	case workloadPct > c.cfg.OverworkElevatedPct:
		return 40
	default:
		return 0
	}
}

func (c *WorkloadCalculator) consecutiveStress(weekMax int, policy models.WorkloadPolicy) float64 {
	if policy.MaxConsecutivePeriods <= 0 || weekMax <= policy.MaxConsecutivePeriods {
		return 0
	}
	return math.Min(100, float64(weekMax-policy.MaxConsecutivePeriods)*25)
}

// gapStress scales total disruptive gap minutes: four or more hours of dead
// time across the week saturates the indicator.
func (c *WorkloadCalculator) gapStress(gapMinutes int) float64 {
	if gapMinutes <= 0 {
		return 0
	}
	return math.Min(100, float64(gapMinutes)*100/240)
}

// imbalanceStress penalises uneven daily load: each period of spread between
// the heaviest and lightest teaching day adds 15 points.
func (c *WorkloadCalculator) imbalanceStress(activeDays, maxPeriods, minPeriods int) float64 {
	if activeDays < 2 {
		return 0
	}
	return math.Min(100, float64(maxPeriods-minPeriods)*15)
}

// riskLevel applies the ordered tier rules; the first match wins.
func (c *WorkloadCalculator) riskLevel(wellness, stress float64) models.BurnoutRiskLevel {
	switch {
	case wellness < 30 || stress > 80:
		return models.RiskCritical
	case wellness < 50 || stress > 60:
		return models.RiskHigh
	case wellness < 70 || stress > 40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func parseClock(raw string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", raw)
	}
	return h*60 + m, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
