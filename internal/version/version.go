package version

import (
	"errors"
	"fmt"
	"time"
)

// Заполняются через -ldflags "-X ..." при сборке.
var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
	BuildCI     string
)

const (
	// Service - имя процесса в логах и /version.
	Service = "inhabited"
	// Protocol - версия бинарного протокола. Меняется при любой правке
	// порядка полей в pkg/api.
	Protocol = 1
)

var (
	// ErrNoBuildDate - бинарник собран без -X version.BuildDate.
	ErrNoBuildDate = errors.New("build date not set")
	// ErrBeforeFirstBuild - дата сборки раньше первого релиза протокола.
	ErrBeforeFirstBuild = errors.New("build date before first release")
)

// firstBuild - день первого релиза протокола v1, номер сборки 0.
var firstBuild = time.Date(2025, time.December, 4, 0, 0, 0, 0, time.UTC)

// VersionInfo - то, что отдаёт /version и пишется в лог при старте.
type VersionInfo struct {
	Service    string `json:"service"`
	Protocol   int    `json:"protocol"`
	BuildID    int    `json:"buildId"`
	BuildDate  string `json:"buildDate"`
	Commit     string `json:"commit"`
	Branch     string `json:"branch"`
	CI         string `json:"ci"`
	Calculated bool   `json:"calculated"`
	Error      string `json:"error,omitempty"`
}

// CalculateBuildID - номер сборки: сколько суток прошло от firstBuild
// до BuildDate.
func CalculateBuildID() (int, error) {
	return buildID(BuildDate)
}

func buildID(date string) (int, error) {
	if date == "" {
		return 0, ErrNoBuildDate
	}
	day, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("build date %q: %w", date, err)
	}
	if day.Before(firstBuild) {
		return 0, fmt.Errorf("build date %s: %w", date, ErrBeforeFirstBuild)
	}
	// обе даты - полночь UTC, деление на сутки точное
	return int(day.Sub(firstBuild) / (24 * time.Hour)), nil
}

// Info собирает метаданные сборки. Ошибка номера сборки не фатальна:
// она попадает в поле Error.
func Info() VersionInfo {
	info := VersionInfo{
		Service:   Service,
		Protocol:  Protocol,
		BuildDate: BuildDate,
		Commit:    BuildCommit,
		Branch:    BuildBranch,
		CI:        BuildCI,
	}
	id, err := CalculateBuildID()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.BuildID = id
	info.Calculated = true
	return info
}

// String - строка для лога при старте сервера.
func String() string {
	info := Info()
	if !info.Calculated {
		return fmt.Sprintf("%s protocol v%d, build unknown (%s)", Service, Protocol, info.Error)
	}
	return fmt.Sprintf(
		"%s protocol v%d, build %d (%s) commit[%s] branch[%s] ci[%s]",
		Service,
		Protocol,
		info.BuildID,
		info.BuildDate,
		orDefault(info.Commit, "unknown"),
		orDefault(info.Branch, "unknown"),
		orDefault(info.CI, "local"),
	)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
