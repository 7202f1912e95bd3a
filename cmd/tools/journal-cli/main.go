package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/annel0/rts-pathfind/internal/journal"
	"github.com/annel0/rts-pathfind/internal/navigator"
	"github.com/annel0/rts-pathfind/internal/physics"
	"github.com/annel0/rts-pathfind/internal/terrain"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		path    = flag.String("path", "data/journal", "каталог журнала BadgerDB")
		command = flag.String("cmd", "sessions", "Команда: sessions, tail, snapshot")
		session = flag.String("session", "", "Сессия (по умолчанию последняя)")
		after   = flag.Uint64("after", 0, "Показывать записи с seq больше")
		ops     = flag.String("ops", "", "Фильтр операций через запятую (agent.spawn,obstacle.set)")
		limit   = flag.Int("limit", 100, "Максимум записей")
		asJSON  = flag.Bool("json", false, "Вывод в JSON")
	)
	flag.Parse()

	store, err := journal.Open(journal.Options{Path: *path, ReadOnly: true})
	if err != nil {
		log.Fatalf("❌ Не удалось открыть журнал: %v", err)
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		log.Fatalf("❌ Ошибка чтения сессий: %v", err)
	}

	switch *command {
	case "sessions":
		for _, s := range sessions {
			fmt.Printf("%s  %s\n", s.CreatedAt.Format(timeFormat), s.ID)
		}
	case "tail":
		id := pickSession(*session, sessions)
		records, err := store.Load(id, *after)
		if err != nil {
			log.Fatalf("❌ Ошибка чтения журнала: %v", err)
		}
		printRecords(filterOps(records, *ops), *limit, *asJSON)
	case "snapshot":
		id := pickSession(*session, sessions)
		state, ok, err := store.LoadSnapshot(id)
		if err != nil {
			log.Fatalf("❌ Ошибка чтения снимка: %v", err)
		}
		if !ok {
			fmt.Printf("У сессии %s нет снимка\n", id)
			return
		}
		fmt.Printf("Снимок %s: seq=%d next_index=%d записей=%d\n", id, state.Seq, state.NextIndex, len(state.Mutations))
		printRecords(filterOps(state.Mutations, *ops), *limit, *asJSON)
	default:
		log.Fatalf("❌ Неизвестная команда %q", *command)
	}
}

func pickSession(id string, sessions []journal.SessionInfo) string {
	if id != "" {
		return id
	}
	if len(sessions) == 0 {
		log.Fatalf("❌ В журнале нет сессий")
	}
	return sessions[len(sessions)-1].ID
}

func filterOps(records []navigator.Mutation, ops string) []navigator.Mutation {
	if ops == "" {
		return records
	}
	allowed := make(map[navigator.Op]bool)
	for _, op := range strings.Split(ops, ",") {
		allowed[navigator.Op(strings.TrimSpace(op))] = true
	}
	filtered := records[:0]
	for _, m := range records {
		if allowed[m.Op] {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func printRecords(records []navigator.Mutation, limit int, asJSON bool) {
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	enc := json.NewEncoder(os.Stdout)
	for _, m := range records {
		if asJSON {
			if err := enc.Encode(m); err != nil {
				log.Fatalf("❌ %v", err)
			}
			continue
		}
		fmt.Printf("%6d  %s  %-16s #%-4d %s\n", m.Seq, m.At.UTC().Format(timeFormat), m.Op, m.Index, describe(m))
	}
	fmt.Fprintf(os.Stderr, "записей: %d\n", len(records))
}

func describe(m navigator.Mutation) string {
	switch m.Op {
	case navigator.OpAgentRelocate:
		return "-> " + m.Point.String()
	case navigator.OpAgentSpawn:
		return fmt.Sprintf("%s %s at %s", physics.MoveTypeName(m.Move), physics.CollSizeName(m.Coll), m.Point)
	case navigator.OpObstacleSet:
		return fmt.Sprintf("cells=%d", len(m.Cells))
	case navigator.OpPortalAdd:
		if m.Portal != nil {
			return fmt.Sprintf("%s -> %s", m.Portal.Start, m.Portal.End)
		}
	case navigator.OpTerrainSet:
		return fmt.Sprintf("%s %s", m.Point, terrain.GroundString(m.Ground))
	}
	return ""
}
