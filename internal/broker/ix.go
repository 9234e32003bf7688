package broker

import (
	"encoding/binary"

	"solana-swarm-lab/internal/solana"
)

// Instruction discriminators for the curve and pool programs.
var (
	curveBuyDiscriminator  = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	curveSellDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
	poolBuyDiscriminator   = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	poolSellDiscriminator  = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// u64Args appends little-endian u64 arguments after a discriminator.
func u64Args(discriminator []byte, args ...uint64) []byte {
	data := make([]byte, len(discriminator)+8*len(args))
	copy(data, discriminator)
	for i, a := range args {
		binary.LittleEndian.PutUint64(data[len(discriminator)+8*i:], a)
	}
	return data
}

// createATAIdempotent builds the associated-token-account create
// instruction in its idempotent form, a no-op when the account exists.
func createATAIdempotent(payer, owner, mint, ata string) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.AssociatedTokenProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: ata, IsWritable: true},
			{PubKey: owner},
			{PubKey: mint},
			{PubKey: solana.SystemProgramID},
			{PubKey: solana.TokenProgramID},
		},
		Data: []byte{1}, // CreateIdempotent
	}
}

// syncNative updates a wrapped-native token account's balance to match
// the lamports deposited into it.
func syncNative(tokenAccount string) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: tokenAccount, IsWritable: true},
		},
		Data: []byte{17}, // SyncNative
	}
}

// closeTokenAccount closes a token account and refunds its lamports to
// the destination. Used to unwrap native token after a pool trade.
func closeTokenAccount(tokenAccount, destination, owner string) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: tokenAccount, IsWritable: true},
			{PubKey: destination, IsWritable: true},
			{PubKey: owner, IsSigner: true},
		},
		Data: []byte{9}, // CloseAccount
	}
}

// budgetInstructions builds the compute-budget pair every trade leads
// with.
func budgetInstructions(priorityFeeLamports uint64) []solana.Instruction {
	return []solana.Instruction{
		solana.SetComputeUnitLimit(computeUnitLimit),
		solana.SetComputeUnitPrice(ComputeUnitPrice(priorityFeeLamports)),
	}
}
