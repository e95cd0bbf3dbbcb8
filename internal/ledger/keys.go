package ledger

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// Escrow holder kinds. Each kind namespaces the derived id so an
// auction escrow can never collide with a group vault for the same
// parent id.
const (
	KindAuctionEscrow = "auction_escrow"
	KindGroupEscrow   = "group_escrow"
	KindStakeVault    = "stake_vault"
	KindRewardPool    = "reward_pool"
	KindCouponMint    = "coupon_mint"
)

// DeriveHolder derives a stable, content-addressed holder id from
// (kind, parent, nonce). The same inputs always produce the same id;
// records store it once at creation and authorize payouts against it.
func DeriveHolder(kind, parent string, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte(parent))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	h.Write(buf[:])

	return base58.Encode(h.Sum(nil))
}
