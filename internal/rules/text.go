package rules

import "strings"

// String draws the board with ASCII borders.
func (b *Board) String() string { return b.Render(false) }

// Render draws the board, white at the bottom. With unicode set, box-drawing
// characters and chess glyphs are used; otherwise ASCII and FEN letters.
func (b *Board) Render(unicode bool) string {
	var sb strings.Builder
	if unicode {
		sb.WriteString("  ┌" + strings.Repeat("───┬", 7) + "───┐\n")
	} else {
		sb.WriteString("  +" + strings.Repeat("---+", 8) + "\n")
	}

	for row := 7; row >= 0; row-- {
		sb.WriteByte(Rows[row])
		if unicode {
			sb.WriteString(" │")
		} else {
			sb.WriteString(" |")
		}
		for col := 0; col < 8; col++ {
			p := b.pieces[string([]byte{Columns[col], Rows[row]})]
			cell := " "
			if !p.IsZero() {
				if unicode {
					cell = p.Glyph()
				} else {
					cell = string(p.Symbol())
				}
			}
			sb.WriteString(" " + cell + " ")
			if unicode {
				sb.WriteString("│")
			} else {
				sb.WriteString("|")
			}
		}
		sb.WriteByte('\n')
		switch {
		case row == 0 && unicode:
			sb.WriteString("  └" + strings.Repeat("───┴", 7) + "───┘\n")
		case unicode:
			sb.WriteString("  ├" + strings.Repeat("───┼", 7) + "───┤\n")
		default:
			sb.WriteString("  +" + strings.Repeat("---+", 8) + "\n")
		}
	}

	sb.WriteString("   ")
	for col := 0; col < 8; col++ {
		sb.WriteString(" " + string(Columns[col]) + "  ")
	}
	sb.WriteByte('\n')
	return sb.String()
}
