package subgraph

import (
	"fmt"
	"strings"
)

// PageSize is the maximum number of rows the indexer returns per entity.
const PageSize = 1000

// TradeQuery builds one request covering every trade stream, newest first,
// starting at offset skip.
func TradeQuery(gteTimestamp int64, skip int) string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, s := range TradeSchemas {
		filter := fmt.Sprintf("%d", gteTimestamp)
		if s.QuotedFilter {
			filter = fmt.Sprintf("%q", filter)
		}
		fmt.Fprintf(&b, "  %s(\n", s.Entity)
		fmt.Fprintf(&b, "    first: %d\n", PageSize)
		fmt.Fprintf(&b, "    skip: %d\n", skip)
		fmt.Fprintf(&b, "    orderBy: %s\n", s.Fields.Timestamp)
		b.WriteString("    orderDirection: desc\n")
		fmt.Fprintf(&b, "    where: {%s_gte: %s}\n", s.Fields.Timestamp, filter)
		b.WriteString("  ) {\n")
		for _, field := range s.selection() {
			fmt.Fprintf(&b, "    %s\n", field)
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}")
	return b.String()
}

// TokenHourQuery builds the Uniswap V3 hourly token data request.
func TokenHourQuery(symbol string, gteTimestamp int64, skip int) string {
	return fmt.Sprintf(`{
  tokenHourDatas(
    first: %d
    skip: %d
    orderBy: periodStartUnix
    where: {token_: {symbol: %q}, periodStartUnix_gte: %d}
    orderDirection: desc
  ) {
    id
    periodStartUnix
    open
    high
    low
    close
  }
}`, PageSize, skip, symbol, gteTimestamp)
}
