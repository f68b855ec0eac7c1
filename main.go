// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("⛪ go-parishsync - Offline-First Church Ledger Sync")
	fmt.Println("===================================================")
	fmt.Println()
	fmt.Println("go-parishsync keeps a church-office ledger usable when the primary")
	fmt.Println("PostgreSQL store is unreachable: writes queue in a local SQLite cache")
	fmt.Println("and drain back later without duplication, while reference data is")
	fmt.Println("mirrored locally for offline logins and member lookups.")
	fmt.Println()

	fmt.Println("📚 Packages:")
	fmt.Println()
	fmt.Println("1. 🗄️  parishsync/ - primary store (PostgreSQL) side")
	fmt.Println("   Connection provider with outage classification, ledger writes with")
	fmt.Println("   replay-stable transaction ids, mirror pulls, session tokens")
	fmt.Println()
	fmt.Println("2. 📦 parishsqlite/ - local cache (SQLite) side")
	fmt.Println("   Mirror tables, pending-payment queue, connectivity prober,")
	fmt.Println("   drain, offline lookups, background auto-sync")
	fmt.Println()
	fmt.Println("3. 🧪 Example (examples/office_flow/)")
	fmt.Println("   End-to-end office wiring: login, record payments, watch the queue drain")
	fmt.Println("   Run: cd examples/office_flow && go run .")
	fmt.Println()
}
