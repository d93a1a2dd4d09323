package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadder_DescendingOrdersHighestFirst(t *testing.T) {
	l := newLadder(true)

	l.getOrCreate(100)
	l.getOrCreate(300)
	l.getOrCreate(200)

	var prices []Price
	for cur := l.bestLevel(); cur != nil; cur = cur.nextLevel {
		prices = append(prices, cur.price)
	}

	assert.Equal(t, []Price{300, 200, 100}, prices)
}

func TestLadder_AscendingOrdersLowestFirst(t *testing.T) {
	l := newLadder(false)

	l.getOrCreate(300)
	l.getOrCreate(100)
	l.getOrCreate(200)

	var prices []Price
	for cur := l.bestLevel(); cur != nil; cur = cur.nextLevel {
		prices = append(prices, cur.price)
	}

	assert.Equal(t, []Price{100, 200, 300}, prices)
}

func TestLadder_GetOrCreateReturnsExistingLevel(t *testing.T) {
	l := newLadder(true)

	first := l.getOrCreate(100)
	second := l.getOrCreate(100)

	assert.Same(t, first, second)
	assert.Equal(t, 1, l.levelCount())
}

func TestLadder_RemoveMiddleLevelFixesLinks(t *testing.T) {
	l := newLadder(true)

	lvl300 := l.getOrCreate(300)
	lvl200 := l.getOrCreate(200)
	lvl100 := l.getOrCreate(100)

	l.remove(lvl200)

	assert.Same(t, lvl100, lvl300.nextLevel)
	assert.Same(t, lvl300, lvl100.prevLevel)
	assert.Equal(t, 2, l.levelCount())
}

func TestLadder_RemoveBestUpdatesBest(t *testing.T) {
	l := newLadder(true)

	best := l.getOrCreate(300)
	l.getOrCreate(200)

	l.remove(best)

	require.NotNil(t, l.bestLevel())
	assert.Equal(t, Price(200), l.bestLevel().price)
}

func TestLadder_RemoveOnlyLevelEmptiesLadder(t *testing.T) {
	l := newLadder(true)
	lvl := l.getOrCreate(100)

	l.remove(lvl)

	assert.True(t, l.isEmpty())
	assert.Nil(t, l.bestLevel())
}

func TestLadder_TopLevelsRespectsDepthAndOrder(t *testing.T) {
	l := newLadder(true)
	l.getOrCreate(300).volume = 10
	l.getOrCreate(200).volume = 20
	l.getOrCreate(100).volume = 30

	views := l.topLevels(2)

	require.Len(t, views, 2)
	assert.Equal(t, Price(300), views[0].Price)
	assert.Equal(t, Price(200), views[1].Price)
}

func TestLadder_TopLevelsZeroDepth(t *testing.T) {
	l := newLadder(true)
	l.getOrCreate(100)

	assert.Nil(t, l.topLevels(0))
}
