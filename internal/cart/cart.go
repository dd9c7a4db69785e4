// Package cart provides pure operations over a session's shopping cart.
// Nothing here performs I/O; the engine mutates carts through these helpers
// and the store serializes them at the persistence boundary.
package cart

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tablelink/ordergate/internal/models"
)

// AddItem appends an item to the cart. Items without a pack id land in the
// default pack.
func AddItem(c *models.Cart, item models.CartItem) {
	if item.PackID == "" {
		item.PackID = models.DefaultPackID
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	c.Items = append(c.Items, item)
}

// RemoveGroup removes every item sharing the given grouping id. Grouped
// items form one purchase unit and never leave the cart partially.
func RemoveGroup(c *models.Cart, groupingID string) int {
	if groupingID == "" {
		return 0
	}
	kept := c.Items[:0]
	removed := 0
	for _, it := range c.Items {
		if it.GroupingID == groupingID {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return removed
}

// RemovePack removes every item in the given pack regardless of grouping.
func RemovePack(c *models.Cart, packID string) int {
	kept := c.Items[:0]
	removed := 0
	for _, it := range c.Items {
		if it.PackID == packID {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return removed
}

// LogicalLine is one numbered line shown to the customer for removal.
// A grouped purchase collapses to its non-child parent; standalone items of
// the same item id and pack collapse into one line with summed quantity.
type LogicalLine struct {
	Label      string
	ItemID     string
	PackID     string
	GroupingID string
	Quantity   int
	Total      float64
}

// LogicalLines collapses the cart into numbered removable lines, in first
// appearance order.
func LogicalLines(c *models.Cart) []LogicalLine {
	var lines []LogicalLine
	index := make(map[string]int)   // collapse key -> lines index
	groupIx := make(map[string]int) // groupingId -> lines index
	var orphaned []models.CartItem  // grouped members seen before their head
	for _, it := range c.Items {
		if it.GroupingID != "" {
			if it.ParentItemID != "" || it.IsTopping {
				// Group members price into their head's line.
				if ix, seen := groupIx[it.GroupingID]; seen {
					lines[ix].Total = Round2(lines[ix].Total + it.Price*float64(it.Quantity))
				} else {
					orphaned = append(orphaned, it)
				}
				continue
			}
			key := "g:" + it.GroupingID
			if _, seen := index[key]; seen {
				continue
			}
			index[key] = len(lines)
			groupIx[it.GroupingID] = len(lines)
			lines = append(lines, LogicalLine{
				Label:      it.Name,
				ItemID:     it.ItemID,
				PackID:     it.PackID,
				GroupingID: it.GroupingID,
				Quantity:   it.Quantity,
				Total:      Round2(it.Price * float64(it.Quantity)),
			})
			continue
		}
		key := "i:" + it.ItemID + ":" + it.PackID
		if ix, seen := index[key]; seen {
			lines[ix].Quantity += it.Quantity
			lines[ix].Total = Round2(lines[ix].Total + it.Price*float64(it.Quantity))
			continue
		}
		index[key] = len(lines)
		lines = append(lines, LogicalLine{
			Label:    it.Name,
			ItemID:   it.ItemID,
			PackID:   it.PackID,
			Quantity: it.Quantity,
			Total:    Round2(it.Price * float64(it.Quantity)),
		})
	}
	for _, it := range orphaned {
		if ix, seen := groupIx[it.GroupingID]; seen {
			lines[ix].Total = Round2(lines[ix].Total + it.Price*float64(it.Quantity))
		}
	}
	return lines
}

// RemoveLogicalLine removes the 1-based numbered line from the cart,
// honoring grouping atomicity. It returns false when the index is out of
// range.
func RemoveLogicalLine(c *models.Cart, number int) bool {
	lines := LogicalLines(c)
	if number < 1 || number > len(lines) {
		return false
	}
	line := lines[number-1]
	if line.GroupingID != "" {
		RemoveGroup(c, line.GroupingID)
		return true
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.GroupingID == "" && it.ItemID == line.ItemID && it.PackID == line.PackID {
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return true
}

// Subtotal sums price times quantity over the whole cart, rounded to two
// decimals half away from zero.
func Subtotal(c *models.Cart) float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return Round2(sum)
}

// PackSubtotal sums one pack only, rounded the same way.
func PackSubtotal(c *models.Cart, packID string) float64 {
	var sum float64
	for _, it := range c.Items {
		if it.PackID == packID {
			sum += it.Price * float64(it.Quantity)
		}
	}
	return Round2(sum)
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Packs returns the distinct pack ids present in the cart, sorted by
// ascending numeric suffix ("pack2" before "pack10").
func Packs(c *models.Cart) []string {
	seen := make(map[string]bool)
	var packs []string
	for _, it := range c.Items {
		if !seen[it.PackID] {
			seen[it.PackID] = true
			packs = append(packs, it.PackID)
		}
	}
	sort.Slice(packs, func(i, j int) bool {
		return packSuffix(packs[i]) < packSuffix(packs[j])
	})
	return packs
}

// NextPackID allocates the next pack id as pack{max+1} over the packs
// already present in the cart and the session's current pack.
func NextPackID(c *models.Cart, currentPackID string) string {
	max := packSuffix(currentPackID)
	for _, p := range Packs(c) {
		if n := packSuffix(p); n > max {
			max = n
		}
	}
	if max < 1 {
		max = 1
	}
	return fmt.Sprintf("pack%d", max+1)
}

func packSuffix(packID string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(packID, "pack"))
	if err != nil {
		return 0
	}
	return n
}
