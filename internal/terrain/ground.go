// Package terrain хранит базовые маски местности и умеет их загружать,
// сохранять и генерировать.
package terrain

import (
	"strings"

	"github.com/annel0/rts-pathfind/internal/pathfind"
)

// Биты местности
const (
	None   pathfind.Ground = 0
	Any    pathfind.Ground = 1 << 0
	Walk   pathfind.Ground = 1 << 1
	Fly    pathfind.Ground = 1 << 2
	Cons   pathfind.Ground = 1 << 3 // Можно строить
	Peon   pathfind.Ground = 1 << 4 // Можно добывать
	Blight pathfind.Ground = 1 << 5
	Water  pathfind.Ground = 1 << 6
	Amp    pathfind.Ground = 1 << 7 // Мелководье: доступно амфибиям
)

var groundNames = [...]struct {
	bit  pathfind.Ground
	name string
}{
	{Any, "any"},
	{Walk, "walk"},
	{Fly, "fly"},
	{Cons, "cons"},
	{Peon, "peon"},
	{Blight, "blight"},
	{Water, "water"},
	{Amp, "amp"},
}

// GroundString возвращает маску в виде "walk|fly"
func GroundString(g pathfind.Ground) string {
	if g == None {
		return "none"
	}
	parts := make([]string, 0, 8)
	for _, gn := range groundNames {
		if g&gn.bit != 0 {
			parts = append(parts, gn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseGround разбирает маску из строки "walk|fly"; "none" — пустая маска
func ParseGround(s string) (pathfind.Ground, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "none" {
		return None, true
	}
	var g pathfind.Ground
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, gn := range groundNames {
			if gn.name == strings.TrimSpace(part) {
				g |= gn.bit
				found = true
				break
			}
		}
		if !found {
			return None, false
		}
	}
	return g, true
}
