package uniswap

// PairABI covers the UniswapV2 pair reads used to snapshot a pool, plus the
// fee() getter exposed by pools with a configurable fee.
const PairABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "fee",
		"outputs": [{"internalType": "uint24", "name": "", "type": "uint24"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// FactoryABI covers pair enumeration on a UniswapV2 factory.
const FactoryABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "allPairsLength",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"name": "allPairs",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
