package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/nightwatch-astro/nightwatch/internal/astro"
)

// localizeCacheSize bounds the number of distinct observer contexts whose
// computed localizations are kept around between queries.
const localizeCacheSize = 16

// Store wraps the catalog database. The static dso table is written once at
// seed time; dso_localized is rebuilt whenever the observer context changes.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	cache *lru.Cache[string, []Localized]

	// appliedKey is the observer key dso_localized currently reflects;
	// matching keys skip the table rebuild entirely.
	appliedKey string
}

// Open opens (or creates) the catalog database at path. Use ":memory:" for
// an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The localized table is rebuilt in one transaction; a single
	// connection keeps the in-memory variant coherent as well.
	db.SetMaxOpenConns(1)

	cache, err := lru.New[string, []Localized](localizeCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, cache: cache}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dso (
			dso_id TEXT PRIMARY KEY,
			catalog TEXT,
			name TEXT,
			ra_dd REAL,
			dec_dd REAL,
			type TEXT,
			class TEXT,
			vis_mag REAL,
			maj_axis REAL,
			min_axis REAL,
			size TEXT,
			constellation TEXT,
			constellation_abbr TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS dso_localized (
			dso_id TEXT PRIMARY KEY,
			catalog TEXT,
			name TEXT,
			ra_dd REAL,
			dec_dd REAL,
			type TEXT,
			class TEXT,
			vis_mag REAL,
			maj_axis REAL,
			min_axis REAL,
			size TEXT,
			constellation TEXT,
			constellation_abbr TEXT,
			altitude REAL,
			azimuth REAL,
			air_mass REAL,
			rise_time TEXT,
			set_time TEXT,
			transit_time TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 50)], err)
		}
	}
	return nil
}

// Seed replaces the static catalog contents.
func (s *Store) Seed(objects []Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dso`); err != nil {
		return err
	}
	for _, o := range objects {
		_, err := tx.Exec(`INSERT OR REPLACE INTO dso
			(dso_id, catalog, name, ra_dd, dec_dd, type, class, vis_mag, maj_axis, min_axis, size, constellation, constellation_abbr)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.Catalog, o.Name, o.RADeg, o.DecDeg, o.Type, o.Class,
			o.VisMag, o.MajAxis, o.MinAxis, o.Size, o.Constellation, o.ConstAbbr)
		if err != nil {
			return fmt.Errorf("insert %s: %w", o.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.cache.Purge()
	s.appliedKey = ""
	slog.Info("catalog seeded", "objects", len(objects))
	return nil
}

// Count returns the number of static catalog entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dso`).Scan(&n)
	return n, err
}

// Localize rebuilds dso_localized for the given observer. Without an
// observer location the table is rebuilt with the observer-dependent fields
// left NULL, matching how location-free sessions are planned.
func (s *Store) Localize(ctx context.Context, obs Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := observerKey(obs)
	if key == s.appliedKey {
		return nil
	}
	rows, ok := s.cache.Get(key)
	if !ok {
		objects, err := s.allObjects(ctx)
		if err != nil {
			return err
		}
		rows, err = localizeAll(ctx, objects, obs)
		if err != nil {
			return err
		}
		s.cache.Add(key, rows)
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dso_localized`); err != nil {
		return err
	}
	for _, r := range rows {
		_, err := tx.Exec(`INSERT OR REPLACE INTO dso_localized
			(dso_id, catalog, name, ra_dd, dec_dd, type, class, vis_mag, maj_axis, min_axis, size, constellation, constellation_abbr,
			 altitude, azimuth, air_mass, rise_time, set_time, transit_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Catalog, r.Name, r.RADeg, r.DecDeg, r.Type, r.Class,
			r.VisMag, r.MajAxis, r.MinAxis, r.Size, r.Constellation, r.ConstAbbr,
			r.AltitudeDeg, r.AzimuthDeg, r.AirMass, r.RiseUTC, r.SetUTC, r.TransitUTC)
		if err != nil {
			return fmt.Errorf("insert localized %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.appliedKey = key

	slog.Debug("localized catalog rebuilt",
		"objects", len(rows),
		"cached", ok,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// localizeAll computes the observer-dependent fields for every object,
// bounded-parallel across CPUs. Row order is preserved.
func localizeAll(ctx context.Context, objects []Object, obs Observer) ([]Localized, error) {
	out := make([]Localized, len(objects))

	if !obs.HasLocation() {
		for i, o := range objects {
			out[i] = Localized{Object: o}
		}
		return out, nil
	}

	obsTime, dayStart, err := observerInstant(obs)
	if err != nil {
		return nil, err
	}
	lat, lon := *obs.LatitudeDeg, *obs.LongitudeDeg

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, o := range objects {
		i, o := i, o
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = localizeOne(o, lat, lon, obsTime, dayStart)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func localizeOne(o Object, lat, lon float64, obsTime, dayStart time.Time) Localized {
	l := Localized{Object: o}

	h := astro.AltAz(o.RADeg, o.DecDeg, lat, lon, obsTime)
	l.AltitudeDeg = &h.AltitudeDeg
	l.AzimuthDeg = &h.AzimuthDeg
	if h.AltitudeDeg > 0 {
		am := astro.Airmass(h.AltitudeDeg)
		l.AirMass = &am
	}

	ev := astro.RiseTransitSet(o.RADeg, o.DecDeg, lat, lon, dayStart)
	if ev.Rise != nil {
		s := astro.FormatUTCZ(*ev.Rise)
		l.RiseUTC = &s
	}
	if ev.Set != nil {
		s := astro.FormatUTCZ(*ev.Set)
		l.SetUTC = &s
	}
	if ev.Transit != nil {
		s := astro.FormatUTCZ(*ev.Transit)
		l.TransitUTC = &s
	}
	return l
}

// observerInstant resolves the observer's date/time/timezone into the
// observation instant and the local midnight the event search starts from.
func observerInstant(obs Observer) (obsTime, dayStart time.Time, err error) {
	tz := obs.Timezone
	if tz == "" {
		tz = "UTC"
	}
	date := obs.Date
	if date == "" {
		loc, lerr := time.LoadLocation(tz)
		if lerr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("load timezone %q: %w", tz, lerr)
		}
		date = time.Now().In(loc).Format("2006-01-02")
	}
	dayStart, err = astro.DayStart(date, tz)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	clock := obs.Time
	if clock == "" {
		clock = "22:00"
	}
	// Some model outputs carry seconds; keep hours and minutes only.
	if parts := strings.Split(clock, ":"); len(parts) == 3 {
		clock = parts[0] + ":" + parts[1]
	}
	loc := dayStart.Location()
	obsTime, err = time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid observe time %q: %w", obs.Time, err)
	}
	return obsTime, dayStart, nil
}

func observerKey(obs Observer) string {
	lat, lon := "-", "-"
	if obs.LatitudeDeg != nil {
		lat = fmt.Sprintf("%.4f", *obs.LatitudeDeg)
	}
	if obs.LongitudeDeg != nil {
		lon = fmt.Sprintf("%.4f", *obs.LongitudeDeg)
	}
	return strings.Join([]string{lat, lon, obs.Date, obs.Time, obs.Timezone}, "|")
}

func (s *Store) allObjects(ctx context.Context) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dso_id, catalog, name, ra_dd, dec_dd, type, class,
		vis_mag, maj_axis, min_axis, size, constellation, constellation_abbr FROM dso`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.ID, &o.Catalog, &o.Name, &o.RADeg, &o.DecDeg, &o.Type, &o.Class,
			&o.VisMag, &o.MajAxis, &o.MinAxis, &o.Size, &o.Constellation, &o.ConstAbbr); err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// Search runs a read-only SELECT against dso_localized.
func (s *Store) Search(ctx context.Context, query string) ([]Localized, error) {
	if err := validateSelect(query); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colIndex := make(map[string]int, len(cols))
	for i, c := range cols {
		colIndex[strings.ToLower(c)] = i
	}

	var results []Localized
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		results = append(results, scanLocalized(colIndex, vals))
	}
	return results, rows.Err()
}

// validateSelect rejects anything but a single SELECT statement. The model
// writes the SQL; the catalog is the only thing it may read.
func validateSelect(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if q == "" {
		return fmt.Errorf("empty query")
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("only a single statement is allowed")
	}
	if !strings.HasPrefix(strings.ToUpper(q), "SELECT") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	// Keyword scan runs with string literals removed so a LIKE pattern such
	// as '%Update%' is not mistaken for a write.
	bare := strings.ToUpper(stripStringLiterals(q))
	for _, kw := range []string{"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "ATTACH", "PRAGMA"} {
		if containsWord(bare, kw) {
			return fmt.Errorf("forbidden keyword %s in query", kw)
		}
	}
	return nil
}

// stripStringLiterals blanks out single-quoted SQL literals, honoring the
// doubled-quote escape.
func stripStringLiterals(q string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		if c == '\'' {
			if inString && i+1 < len(q) && q[i+1] == '\'' {
				i++ // escaped quote inside the literal
				continue
			}
			inString = !inString
			continue
		}
		if !inString {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func containsWord(upper, word string) bool {
	idx := 0
	for {
		i := strings.Index(upper[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordChar(upper[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(upper) || !isWordChar(upper[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func scanLocalized(colIndex map[string]int, vals []any) Localized {
	var l Localized

	str := func(name string) string {
		if i, ok := colIndex[name]; ok {
			switch v := vals[i].(type) {
			case string:
				return v
			case []byte:
				return string(v)
			}
		}
		return ""
	}
	num := func(name string) float64 {
		if i, ok := colIndex[name]; ok {
			switch v := vals[i].(type) {
			case float64:
				return v
			case int64:
				return float64(v)
			}
		}
		return 0
	}
	numPtr := func(name string) *float64 {
		if i, ok := colIndex[name]; ok && vals[i] != nil {
			v := num(name)
			return &v
		}
		return nil
	}
	strPtr := func(name string) *string {
		if i, ok := colIndex[name]; ok && vals[i] != nil {
			v := str(name)
			return &v
		}
		return nil
	}

	l.ID = str("dso_id")
	l.Catalog = str("catalog")
	l.Name = str("name")
	l.RADeg = num("ra_dd")
	l.DecDeg = num("dec_dd")
	l.Type = str("type")
	l.Class = str("class")
	l.VisMag = num("vis_mag")
	l.MajAxis = num("maj_axis")
	l.MinAxis = num("min_axis")
	l.Size = str("size")
	l.Constellation = str("constellation")
	l.ConstAbbr = str("constellation_abbr")
	l.AltitudeDeg = numPtr("altitude")
	l.AzimuthDeg = numPtr("azimuth")
	l.AirMass = numPtr("air_mass")
	l.RiseUTC = strPtr("rise_time")
	l.SetUTC = strPtr("set_time")
	l.TransitUTC = strPtr("transit_time")
	return l
}
