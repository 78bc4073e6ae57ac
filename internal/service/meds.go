package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"gorm.io/gorm"

	"github.com/tmacree/healthtext/internal/models"
)

// Medication categories.
const (
	CatTriptan     = "triptan"
	CatErgot       = "ergot"
	CatCombination = "combination-analgesic"
	CatSimple      = "simple-analgesic"
	CatGepant      = "gepant"
	CatDitan       = "ditan"
	CatAntiemetic  = "antiemetic"
	CatPreventive  = "preventive"
	CatUnknown     = "unknown"
)

// medCategories fixes the classification order so text naming drugs
// from two categories always resolves the same way.
var medCategories = []string{
	CatTriptan, CatErgot, CatCombination, CatSimple,
	CatGepant, CatDitan, CatAntiemetic, CatPreventive,
}

// medTaxonomy maps each category to its known name fragments. The
// interaction rules below cover only the documented triptan/ergot pair;
// do not add undocumented interactions here.
var medTaxonomy = map[string][]string{
	CatTriptan: {
		"sumatriptan", "imitrex", "rizatriptan", "maxalt", "zolmitriptan", "zomig",
		"eletriptan", "relpax", "naratriptan", "amerge", "almotriptan", "frovatriptan", "frova",
	},
	CatErgot: {
		"ergotamine", "dihydroergotamine", "dhe", "migranal", "cafergot", "ergot",
	},
	CatCombination: {
		"excedrin", "fioricet", "fiorinal", "butalbital",
	},
	CatSimple: {
		"ibuprofen", "advil", "motrin", "naproxen", "aleve", "acetaminophen",
		"tylenol", "paracetamol", "aspirin", "ketorolac", "toradol",
	},
	CatGepant: {
		"ubrogepant", "ubrelvy", "rimegepant", "nurtec", "zavegepant", "zavzpret",
	},
	CatDitan: {
		"lasmiditan", "reyvow",
	},
	CatAntiemetic: {
		"ondansetron", "zofran", "metoclopramide", "reglan", "promethazine", "phenergan",
	},
	CatPreventive: {
		"propranolol", "topiramate", "topamax", "amitriptyline", "candesartan",
	},
}

var doseRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml)\b`)

// MedConfig is the tunable part of the safety engine. The interaction
// window and near-limit threshold were hand-tuned in production use and
// live in configuration, not code.
type MedConfig struct {
	MonthlyLimits     map[string]int
	NearLimitFrac     float64
	InteractionWindow time.Duration
	FuzzyThreshold    float64
}

// MedService classifies medication text and enforces the interaction
// and monthly-limit rules.
type MedService struct {
	db       *gorm.DB
	episodes *EpisodeService
	cfg      MedConfig
	loc      *time.Location
}

// NewMedService creates a new MedService instance
func NewMedService(db *gorm.DB, episodes *EpisodeService, cfg MedConfig, loc *time.Location) *MedService {
	return &MedService{db: db, episodes: episodes, cfg: cfg, loc: loc}
}

// Classify matches the text against the taxonomy: exact substring
// first, then a nearest-neighbor fuzzy pass over the flattened name
// list. Unmatched text is CatUnknown.
func (s *MedService) Classify(text string) (category, matchedName string) {
	lower := strings.ToLower(text)

	for _, cat := range medCategories {
		for _, name := range medTaxonomy[cat] {
			if strings.Contains(lower, name) {
				return cat, name
			}
		}
	}

	// Fuzzy pass: compare each word against every known name.
	bestScore := s.cfg.FuzzyThreshold
	for _, word := range strings.Fields(lower) {
		for _, cat := range medCategories {
			for _, name := range medTaxonomy[cat] {
				if score := similarity(word, name); score >= bestScore {
					bestScore = score
					category, matchedName = cat, name
				}
			}
		}
	}
	if category == "" {
		return CatUnknown, ""
	}
	return category, matchedName
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// ExtractDose pulls an optional "<number><unit>" dose out of the text.
func ExtractDose(text string) string {
	m := doseRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	return m[1] + m[2]
}

// DoseResult is everything the reply needs about a logged dose.
type DoseResult struct {
	Category        string
	MatchedName     string
	DoseText        string
	LinkedEpisodeID string
	MonthCount      int
	MonthLimit      int // 0 when the category has no ceiling
	Warnings        []string
	Preview         bool
}

// LogDose appends a dose record (never deduplicated - repeat doses are
// valid), links it to an open migraine when one exists, and runs the
// interaction and monthly-limit checks. Warnings never block the write.
func (s *MedService) LogDose(ctx context.Context, userID string, when time.Time, text string, simulate bool) (*DoseResult, error) {
	category, matched := s.Classify(text)
	dose := ExtractDose(text)
	day := when.In(s.loc).Format(dayLayout)

	result := &DoseResult{Category: category, MatchedName: matched, DoseText: dose, Preview: simulate}

	// Soft link to an open migraine; an integrity fault here is
	// surfaced rather than guessed around.
	open, err := s.episodes.OpenEpisode(ctx, userID, models.EpisodeMigraine)
	if err != nil {
		return nil, err
	}
	if open != nil {
		result.LinkedEpisodeID = open.EpisodeID
	}

	var loggedID uint
	if !simulate {
		row := models.MedDose{
			UserID:      userID,
			Day:         day,
			TsMs:        when.UnixMilli(),
			Category:    category,
			MatchedName: matched,
			DoseText:    dose,
			EpisodeID:   result.LinkedEpisodeID,
			RawText:     text,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		loggedID = row.ID
	}

	if w := s.interactionWarning(ctx, userID, category, when, loggedID); w != "" {
		result.Warnings = append(result.Warnings, w)
	}

	if limit, ok := s.cfg.MonthlyLimits[category]; ok {
		count, err := s.monthToDateCount(ctx, userID, category, when, simulate)
		if err != nil {
			return nil, err
		}
		result.MonthCount = count
		result.MonthLimit = limit
		if count > limit {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("OVER monthly limit: %d of %d %s doses this month", count, limit, category))
		} else if count >= nearLimit(limit, s.cfg.NearLimitFrac) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("approaching monthly limit: %d of %d %s doses this month", count, limit, category))
		}
	}

	return result, nil
}

// interactionWarning scans doses inside the trailing window (absolute
// time difference, not calendar day). Triptan after a recent triptan or
// ergot warns, and symmetrically ergot after a recent triptan. The
// just-logged row is excluded by id so a prior dose in the same
// millisecond still counts; loggedID is 0 on simulate.
func (s *MedService) interactionWarning(ctx context.Context, userID, category string, when time.Time, loggedID uint) string {
	var counterparts []string
	switch category {
	case CatTriptan:
		counterparts = []string{CatTriptan, CatErgot}
	case CatErgot:
		counterparts = []string{CatTriptan}
	default:
		return ""
	}

	cutoff := when.Add(-s.cfg.InteractionWindow).UnixMilli()

	var recent []models.MedDose
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND category IN ? AND ts_ms >= ? AND ts_ms <= ? AND id <> ?",
			userID, counterparts, cutoff, when.UnixMilli(), loggedID).
		Order("ts_ms DESC").
		Find(&recent).Error
	if err != nil || len(recent) == 0 {
		return ""
	}

	prev := recent[0]
	ago := time.Duration(when.UnixMilli()-prev.TsMs) * time.Millisecond
	return fmt.Sprintf("CAUTION: %s logged %s after a %s dose - do not combine triptans and ergots within %s",
		category, formatDuration(ago), prev.Category, formatDuration(s.cfg.InteractionWindow))
}

// monthToDateCount counts the category's doses from the first of the
// month through today inclusive. The just-logged dose is already
// counted when written; simulate adds it hypothetically.
func (s *MedService) monthToDateCount(ctx context.Context, userID, category string, when time.Time, simulate bool) (int, error) {
	local := when.In(s.loc)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc).Format(dayLayout)
	today := local.Format(dayLayout)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.MedDose{}).
		Where("user_id = ? AND category = ? AND day BETWEEN ? AND ?", userID, category, first, today).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	if simulate {
		count++
	}
	return int(count), nil
}

func nearLimit(limit int, frac float64) int {
	return int(math.Ceil(float64(limit) * frac))
}

// MonthToDate lists this month's doses and the per-category counts.
func (s *MedService) MonthToDate(ctx context.Context, userID string, now time.Time) ([]models.MedDose, map[string]int, error) {
	local := now.In(s.loc)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc).Format(dayLayout)
	today := local.Format(dayLayout)

	var rows []models.MedDose
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND day BETWEEN ? AND ?", userID, first, today).
		Order("ts_ms ASC").
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Category]++
	}
	return rows, counts, nil
}

// Limits exposes the configured ceilings for reply formatting.
func (s *MedService) Limits() map[string]int {
	return s.cfg.MonthlyLimits
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}
