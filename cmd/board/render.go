package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Apurer/bakery-orders/internal/client/orderform"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

func printDay(out io.Writer, day time.Time, orders []*ordersdomain.Order, catalog *orderform.Catalog, loc *time.Location) {
	fmt.Fprintf(out, "== %s (%d orders)\n", day.Format("Mon 02.01.2006"), len(orders))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, order := range orders {
		writeOrder(w, order, catalog, loc)
	}
	_ = w.Flush()
}

func printBoard(out io.Writer, columns [][]*ordersdomain.Order, catalog *orderform.Catalog, loc *time.Location) {
	if len(columns) == 0 {
		fmt.Fprintln(out, "no upcoming orders")
		return
	}
	for _, column := range columns {
		if len(column) == 0 {
			continue
		}
		printDay(out, column[0].PickupAt.In(loc), column, catalog, loc)
	}
}

func printProducts(out io.Writer, products []ordersdomain.Product) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tCATEGORY\tPRICE")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\n", p.ID, p.Code, p.Name, p.Category, p.Price)
	}
	_ = w.Flush()
}

func writeOrder(w io.Writer, order *ordersdomain.Order, catalog *orderform.Catalog, loc *time.Location) {
	status := ""
	if order.Complete() {
		status = " [done]"
	}
	paid := ""
	switch {
	case order.Paid:
		paid = "paid"
	case order.AdvancePayment > 0:
		paid = "advance " + strconv.FormatFloat(order.AdvancePayment, 'f', 2, 64)
	}
	fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s%s\n",
		order.ID, order.PickupAt.In(loc).Format("15:04"), order.ClientName, order.ClientPhone, paid, status)
	for _, line := range order.Lines {
		fmt.Fprintf(w, "\t%s\t%s x %s\t%s\t%s\n",
			lineMark(line), productName(catalog, line.ProductID), formatQuantity(line.Quantity), line.Note, cakeText(line))
	}
}

func lineMark(line ordersdomain.Line) string {
	switch {
	case line.Complete:
		return "[x]"
	case line.InProgress:
		return "[~]"
	}
	return "[ ]"
}

func productName(catalog *orderform.Catalog, id int64) string {
	if p, ok := catalog.Product(id); ok {
		return p.Name
	}
	return "#" + strconv.FormatInt(id, 10)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func cakeText(line ordersdomain.Line) string {
	if line.Cake == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if line.Cake.Inscription != "" {
		parts = append(parts, strconv.Quote(line.Cake.Inscription))
	}
	if line.Cake.Photo != "" {
		parts = append(parts, "photo "+line.Cake.Photo)
	}
	return strings.Join(parts, " ")
}
